package iterator

import (
	"context"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

type errorIterator[T any] struct {
	err error
}

// Error returns an iterator that fails immediately with err.
func Error[T any](err error) storage.Iterator[T] {
	return &errorIterator[T]{err: err}
}

func (e *errorIterator[T]) Next(ctx context.Context) (T, error) {
	var t T
	return t, e.err
}

func (e *errorIterator[T]) Stop() {}
