package iterator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

func TestFilteredIterator(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ctx := context.Background()

	t.Run("should_return_input_iterator_when_no_filters", func(t *testing.T) {
		inner := Static([]string{"a"})
		require.Equal(t, inner, NewFilteredIterator(inner))
	})

	t.Run("should_yield_only_passing_items", func(t *testing.T) {
		iter := NewFilteredIterator(Static([]string{"a", "bb", "c", "dd"}), func(s string) (bool, error) {
			return len(s) == 1, nil
		})

		values, err := Collect(ctx, iter)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "c"}, values)
	})

	t.Run("should_apply_filters_in_order", func(t *testing.T) {
		var order []string
		iter := NewFilteredIterator(Static([]string{"a"}),
			func(s string) (bool, error) {
				order = append(order, "first")
				return true, nil
			},
			func(s string) (bool, error) {
				order = append(order, "second")
				return true, nil
			},
		)

		_, err := Collect(ctx, iter)
		require.NoError(t, err)
		require.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("should_support_stateful_filters", func(t *testing.T) {
		seen := map[string]struct{}{}
		dedup := func(s string) (bool, error) {
			if _, dup := seen[s]; dup {
				return false, nil
			}
			seen[s] = struct{}{}
			return true, nil
		}

		iter := NewFilteredIterator(Static([]string{"a", "b", "a", "c", "b"}), dedup)

		values, err := Collect(ctx, iter)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, values)
	})

	t.Run("should_propagate_filter_error", func(t *testing.T) {
		expectedErr := errors.New("filter failed")
		iter := NewFilteredIterator(Static([]string{"a"}), func(s string) (bool, error) {
			return false, expectedErr
		})

		_, err := iter.Next(ctx)
		require.ErrorIs(t, err, expectedErr)
	})

	t.Run("should_stop_underlying_iterator", func(t *testing.T) {
		inner := newStub("a", "b")
		iter := NewFilteredIterator[string](inner, func(s string) (bool, error) {
			return true, nil
		})

		iter.Stop()
		require.True(t, inner.stopped)
	})
}

func TestMap(t *testing.T) {
	ctx := context.Background()

	iter := Map(Static([]int{1, 2, 3}), func(v int) int { return v * 10 })

	values, err := Collect(ctx, iter)
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30}, values)

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, storage.ErrIteratorDone)
}
