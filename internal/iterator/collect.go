package iterator

import (
	"context"
	"errors"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// Collect drains the iterator into a slice and stops it. On error the items
// consumed so far are discarded.
func Collect[T any](ctx context.Context, iter storage.Iterator[T]) ([]T, error) {
	defer iter.Stop()

	var items []T
	for {
		item, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				return items, nil
			}
			return nil, err
		}
		items = append(items, item)
	}
}

// Map returns an iterator applying fn to every item of iter.
func Map[T, U any](iter storage.Iterator[T], fn func(T) U) storage.Iterator[U] {
	return &mapIterator[T, U]{iter: iter, fn: fn}
}

type mapIterator[T, U any] struct {
	iter storage.Iterator[T]
	fn   func(T) U
}

func (m *mapIterator[T, U]) Next(ctx context.Context) (U, error) {
	var zero U
	item, err := m.iter.Next(ctx)
	if err != nil {
		return zero, err
	}
	return m.fn(item), nil
}

func (m *mapIterator[T, U]) Stop() {
	m.iter.Stop()
}
