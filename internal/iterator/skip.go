package iterator

import (
	"context"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// SkipLimit applies a pagination window to an iterator: the first skip items
// are discarded, then at most limit items are yielded before the stream ends
// with storage.ErrIteratorDone. Ending early is pagination, not an error.
//
// A nil skip means no skip; a nil limit means unbounded. Callers validate
// non-negativity before constructing the window.
func SkipLimit[T any](iter storage.Iterator[T], skip, limit *int) storage.Iterator[T] {
	if skip == nil && limit == nil {
		return iter
	}
	w := &window[T]{iter: iter, limit: -1}
	if skip != nil {
		w.toSkip = *skip
	}
	if limit != nil {
		w.limit = *limit
	}
	return w
}

type window[T any] struct {
	iter    storage.Iterator[T]
	toSkip  int
	limit   int // -1 means unbounded
	yielded int
	done    bool
}

func (w *window[T]) Next(ctx context.Context) (T, error) {
	var zero T

	if w.done {
		return zero, storage.ErrIteratorDone
	}

	// Reaching the limit ends the stream and releases the upstream cursor
	// without draining it.
	if w.limit >= 0 && w.yielded == w.limit {
		w.Stop()
		return zero, storage.ErrIteratorDone
	}

	for w.toSkip > 0 {
		if _, err := w.iter.Next(ctx); err != nil {
			w.done = true
			return zero, err
		}
		w.toSkip--
	}

	item, err := w.iter.Next(ctx)
	if err != nil {
		w.done = true
		return zero, err
	}

	w.yielded++
	return item, nil
}

func (w *window[T]) Stop() {
	w.done = true
	w.iter.Stop()
}
