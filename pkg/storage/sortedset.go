package storage

import "github.com/emirpasic/gods/trees/redblacktree"

// SortedSet stores a set (no duplicates allowed) of string IDs in memory
// in a way that also provides fast sorted access. The engine uses it to make
// unit type iteration order deterministic regardless of how the storage layer
// returned the values.
type SortedSet interface {
	Size() int
	Add(key string)
	Exists(key string) bool
	// Values returns the members in ascending order.
	Values() []string
}

type RedBlackTreeSet struct {
	inner *redblacktree.Tree
}

var _ SortedSet = (*RedBlackTreeSet)(nil)

func NewSortedSet(keys ...string) *RedBlackTreeSet {
	c := &RedBlackTreeSet{
		inner: redblacktree.NewWithStringComparator(),
	}
	for _, k := range keys {
		c.Add(k)
	}
	return c
}

func (r *RedBlackTreeSet) Add(key string) {
	r.inner.Put(key, nil)
}

func (r *RedBlackTreeSet) Exists(key string) bool {
	_, ok := r.inner.Get(key)
	return ok
}

func (r *RedBlackTreeSet) Size() int {
	return r.inner.Size()
}

func (r *RedBlackTreeSet) Values() []string {
	values := make([]string, 0, r.inner.Size())
	for _, v := range r.inner.Keys() {
		values = append(values, v.(string))
	}
	return values
}
