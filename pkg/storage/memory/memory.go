// Package memory provides an ephemeral memory-backed document store. It backs
// tests and the demo CLI; its query semantics (equality and $in-style
// matching, stable multi-key sort, distinct) mirror what the production
// backend provides.
package memory

import (
	"context"
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

var tracer = otel.Tracer("pulp/pkg/storage/memory")

// Datastore is an in-memory implementation of storage.Datastore plus named
// unit collections. Instances may be safely shared by multiple goroutines.
type Datastore struct {
	// map: collection name => list of documents
	collections map[string]*collection // GUARDED_BY(mu).
	mu          sync.RWMutex

	closed bool // GUARDED_BY(mu).
}

var _ storage.Datastore = (*Datastore)(nil)

// AssociationCollection is the name of the repo-unit association collection.
const AssociationCollection = "repo_content_units"

// New returns an empty in-memory datastore.
func New() *Datastore {
	return &Datastore{
		collections: map[string]*collection{},
	}
}

// Associations implements storage.Datastore.
func (d *Datastore) Associations() storage.Collection {
	return d.Collection(AssociationCollection)
}

// Collection returns the named collection, creating it on first use. Handles
// stay valid for the lifetime of the datastore.
func (d *Datastore) Collection(name string) storage.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &collection{}
		d.collections[name] = c
	}
	return c
}

// IsReady implements storage.Datastore.
func (d *Datastore) IsReady(ctx context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.closed, nil
}

// Close implements storage.Datastore.
func (d *Datastore) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.collections = map[string]*collection{}
	return nil
}

type collection struct {
	docs []storage.Document // GUARDED_BY(mu).
	mu   sync.RWMutex
}

var _ storage.Collection = (*collection)(nil)

// Find implements storage.Collection. The iterator operates on a snapshot of
// the matching documents, so concurrent inserts do not disturb an open cursor.
func (c *collection) Find(ctx context.Context, filter storage.Filter, opts storage.FindOptions) (storage.DocumentIterator, error) {
	ctx, span := tracer.Start(ctx, "memory.Find")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	var matched []storage.Document
	for _, doc := range c.docs {
		if match(doc, filter) {
			matched = append(matched, doc)
		}
	}
	c.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sortDocuments(matched, opts.Sort)
	}

	if opts.Fields != nil {
		for i, doc := range matched {
			matched[i] = project(doc, opts.Fields)
		}
	} else {
		for i, doc := range matched {
			matched[i] = cloneDocument(doc)
		}
	}

	return &staticIterator{docs: matched}, nil
}

// Distinct implements storage.Collection.
func (c *collection) Distinct(ctx context.Context, field string, filter storage.Filter) ([]string, error) {
	ctx, span := tracer.Start(ctx, "memory.Distinct")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]struct{}{}
	var values []string
	for _, doc := range c.docs {
		if !match(doc, filter) {
			continue
		}
		v, ok := doc[field].(string)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

// Insert implements storage.Collection. Documents without an _id get a ULID,
// matching how the production backend assigns opaque ids.
func (c *collection) Insert(ctx context.Context, doc storage.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := cloneDocument(doc)
	id, ok := stored[storage.FieldID].(string)
	if !ok || id == "" {
		id = strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
		stored[storage.FieldID] = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, stored)
	return id, nil
}

// match returns true if every term in the filter matches the corresponding
// document field. A storage.In value matches membership; anything else is an
// equality check.
func match(doc storage.Document, filter storage.Filter) bool {
	for field, want := range filter {
		got, present := doc[field]
		if in, ok := want.(storage.In); ok {
			if !present || !containsValue(in, got) {
				return false
			}
			continue
		}
		if !present || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func containsValue(in storage.In, v any) bool {
	for _, candidate := range in {
		if valuesEqual(v, candidate) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// sortDocuments sorts in place by the given keys, earlier keys dominating.
// The sort is stable so storage insertion order breaks remaining ties, which
// keeps repeated identical queries byte-identical.
func sortDocuments(docs []storage.Document, keys []storage.SortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			c := compareValues(docs[i][key.Field], docs[j][key.Field])
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues imposes an ordering over the value types stored in documents.
// Missing values sort first, like the production backend treats null.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	}

	// Mismatched types have no meaningful order.
	return 0
}

// project copies only the requested fields. The document id is always kept.
func project(doc storage.Document, fields []string) storage.Document {
	out := storage.Document{}
	if id, ok := doc[storage.FieldID]; ok {
		out[storage.FieldID] = id
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func cloneDocument(doc storage.Document) storage.Document {
	out := make(storage.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

type staticIterator struct {
	docs []storage.Document
	mu   sync.Mutex
}

var _ storage.DocumentIterator = (*staticIterator)(nil)

// Next see storage.Iterator.
func (s *staticIterator) Next(ctx context.Context) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.docs) == 0 {
		return nil, storage.ErrIteratorDone
	}

	next, rest := s.docs[0], s.docs[1:]
	s.docs = rest
	return next, nil
}

// Stop does not do anything for staticIterator.
func (s *staticIterator) Stop() {}
