// Package storage contains the document-store capability interfaces consumed
// by the query engine, along with the record schema and iterator contract.
package storage

import (
	"context"
	"errors"
)

// Well-known field names in the association collection.
const (
	FieldID         = "_id"
	FieldRepoID     = "repo_id"
	FieldUnitTypeID = "unit_type_id"
	FieldUnitID     = "unit_id"
	FieldOwnerType  = "owner_type"
	FieldOwnerID    = "owner_id"
	FieldCreated    = "created"
	FieldUpdated    = "updated"
)

// ErrIteratorDone is returned by Iterator.Next when the sequence is exhausted.
var ErrIteratorDone = errors.New("iterator done")

// Iterator is a lazy pull-based sequence. It is closed by explicitly calling
// Stop() or by calling Next() until it returns ErrIteratorDone.
type Iterator[T any] interface {
	// Next returns the next available item. If the context is cancelled or
	// times out, it returns the context error. When the sequence is exhausted
	// it returns ErrIteratorDone.
	Next(ctx context.Context) (T, error)

	// Stop releases any resources held by the iterator. It must be safe to
	// call multiple times and after exhaustion.
	Stop()
}

// Document is a single stored record as a field-value mapping.
type Document = map[string]any

// DocumentIterator is an iterator over stored documents.
type DocumentIterator = Iterator[Document]

// Filter is an equality-match query document. A value of type In matches
// membership instead of equality. A nil Filter matches everything.
type Filter map[string]any

// In matches documents whose field value is any of the listed values.
type In []any

// InStrings builds an In value from a string slice.
func InStrings(values []string) In {
	in := make(In, 0, len(values))
	for _, v := range values {
		in = append(in, v)
	}
	return in
}

// Clone returns a shallow copy of the filter, so callers can add terms
// without mutating criteria owned by someone else.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f)+2)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// SortKey is one element of an ordered sort specification.
type SortKey struct {
	Field string
	Desc  bool
}

// FindOptions carries projection and sort for a Find call.
type FindOptions struct {
	// Fields restricts returned documents to the listed fields. The document
	// id is always included. Nil means all fields.
	Fields []string

	// Sort is applied in order; earlier keys dominate.
	Sort []SortKey
}

// Collection is the per-collection query capability: filter, project, sort,
// distinct, iterate. Write access beyond Insert is deliberately absent; the
// engine is read-only and Insert exists for seeding and tests.
type Collection interface {
	// Find returns a lazy iterator over documents matching the filter. The
	// caller must exhaust or Stop the iterator to release the cursor.
	Find(ctx context.Context, filter Filter, opts FindOptions) (DocumentIterator, error)

	// Distinct returns the distinct values of a string field across documents
	// matching the filter. Order is unspecified.
	Distinct(ctx context.Context, field string, filter Filter) ([]string, error)

	// Insert stores a document, assigning an id when the document has none,
	// and returns the document id.
	Insert(ctx context.Context, doc Document) (string, error)
}

// Datastore is the top-level storage capability handed to the engine. Unit
// collections are not reachable from here; the type registry maps a unit type
// to its Collection.
type Datastore interface {
	// Associations returns the repo-unit association collection.
	Associations() Collection

	// IsReady reports whether the datastore is ready to accept traffic.
	IsReady(ctx context.Context) (bool, error)

	// Close closes the datastore and cleans up any residual resources.
	Close(ctx context.Context) error
}
