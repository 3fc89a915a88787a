package iterator

import (
	"context"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

type staticIterator[T any] struct {
	items []T
}

// Static returns an iterator over the provided slice. The slice is consumed
// in place; callers keep ownership of the backing array.
func Static[T any](items []T) storage.Iterator[T] {
	return &staticIterator[T]{items: items}
}

func (s *staticIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if len(s.items) == 0 {
		return zero, storage.ErrIteratorDone
	}

	next, rest := s.items[0], s.items[1:]
	s.items = rest

	return next, nil
}

func (s *staticIterator[T]) Stop() {}
