// Package iterator provides generic adapters over storage.Iterator used to
// fuse storage cursors into a single result stream.
package iterator

import (
	"context"
	"errors"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// OpenFunc lazily produces an iterator. Concat uses it so that a downstream
// cursor is only opened once the stream actually reaches it; a consumer that
// stops early never touches the remaining collections.
type OpenFunc[T any] func(ctx context.Context) (storage.Iterator[T], error)

// Opened wraps an already-open iterator as an OpenFunc.
func Opened[T any](iter storage.Iterator[T]) OpenFunc[T] {
	return func(ctx context.Context) (storage.Iterator[T], error) {
		return iter, nil
	}
}

// Concat returns an iterator that yields all items from each source in order,
// exhausting one completely before opening the next.
//
// This iterator is not thread-safe and should only be consumed by a single
// goroutine.
func Concat[T any](sources ...OpenFunc[T]) storage.Iterator[T] {
	return &concatIterator[T]{pending: sources}
}

type concatIterator[T any] struct {
	current storage.Iterator[T]
	pending []OpenFunc[T]
	done    bool
}

func (c *concatIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T

	if c.done {
		return zero, storage.ErrIteratorDone
	}

	for {
		if c.current == nil {
			if len(c.pending) == 0 {
				c.done = true
				return zero, storage.ErrIteratorDone
			}

			next, rest := c.pending[0], c.pending[1:]
			c.pending = rest

			iter, err := next(ctx)
			if err != nil {
				c.done = true
				return zero, err
			}
			c.current = iter
		}

		item, err := c.current.Next(ctx)

		// Current source exhausted, move on to the next one.
		if errors.Is(err, storage.ErrIteratorDone) {
			c.current.Stop() // ensure we stop the source before dropping the reference
			c.current = nil
			continue
		}

		if err != nil {
			c.done = true
			return zero, err
		}

		return item, nil
	}
}

func (c *concatIterator[T]) Stop() {
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
	// Sources never opened hold no resources.
	c.pending = nil
	c.done = true
}
