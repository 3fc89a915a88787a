package iterator

import (
	"context"
	"errors"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// FilterFunc determines whether an item should be included in the iterator
// results. It returns true if the item passes the filter, false otherwise.
// Filter functions may carry state; the deduplication stage is a stateful
// filter over its seen-set.
type FilterFunc[T any] func(T) (bool, error)

type filter[T any] struct {
	iter    storage.Iterator[T]
	filters []FilterFunc[T]
}

// NewFilteredIterator returns an iterator that yields only the items passing
// every provided filter function.
func NewFilteredIterator[T any](iter storage.Iterator[T], filters ...FilterFunc[T]) storage.Iterator[T] {
	if len(filters) == 0 {
		return iter
	}
	return &filter[T]{
		iter:    iter,
		filters: filters,
	}
}

func (f *filter[T]) applyFilters(entry T) (bool, error) {
	for _, fn := range f.filters {
		passes, err := fn(entry)
		if err != nil {
			return false, err
		}
		if !passes {
			return false, nil
		}
	}
	return true, nil
}

// Next returns the next item that passes all filter functions.
func (f *filter[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		entry, err := f.iter.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				return zero, storage.ErrIteratorDone
			}
			return zero, err
		}

		valid, err := f.applyFilters(entry)
		if err != nil {
			return zero, err
		}

		if !valid {
			continue
		}
		return entry, nil
	}
}

func (f *filter[T]) Stop() {
	f.iter.Stop()
}
