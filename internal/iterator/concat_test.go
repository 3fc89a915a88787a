package iterator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

// stub wraps a static iterator and records whether Stop was called.
type stub[T any] struct {
	inner   storage.Iterator[T]
	stopped bool
}

func newStub[T any](items ...T) *stub[T] {
	return &stub[T]{inner: Static(items)}
}

func (s *stub[T]) Next(ctx context.Context) (T, error) {
	return s.inner.Next(ctx)
}

func (s *stub[T]) Stop() {
	s.stopped = true
	s.inner.Stop()
}

func TestConcat(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ctx := context.Background()

	tests := []struct {
		name           string
		sources        [][]string
		expectedValues []string
	}{
		{
			name:           "should_concatenate_two_iterators",
			sources:        [][]string{{"a", "b"}, {"c", "d"}},
			expectedValues: []string{"a", "b", "c", "d"},
		},
		{
			name:           "should_handle_empty_first_iterator",
			sources:        [][]string{{}, {"a", "b"}},
			expectedValues: []string{"a", "b"},
		},
		{
			name:           "should_handle_empty_middle_iterator",
			sources:        [][]string{{"a"}, {}, {"b"}},
			expectedValues: []string{"a", "b"},
		},
		{
			name:           "should_handle_all_empty_iterators",
			sources:        [][]string{{}, {}},
			expectedValues: nil,
		},
		{
			name:           "should_handle_no_sources",
			sources:        nil,
			expectedValues: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stubs []*stub[string]
			var sources []OpenFunc[string]
			for _, items := range test.sources {
				s := newStub(items...)
				stubs = append(stubs, s)
				sources = append(sources, Opened[string](s))
			}

			iter := Concat(sources...)

			values, err := Collect(ctx, iter)
			require.NoError(t, err)
			require.Equal(t, test.expectedValues, values)

			// exhausted sources must have been stopped
			for _, s := range stubs {
				require.True(t, s.stopped)
			}

			_, err = iter.Next(ctx)
			require.ErrorIs(t, err, storage.ErrIteratorDone)
		})
	}
}

func TestConcatOpensSourcesLazily(t *testing.T) {
	ctx := context.Background()

	opened := 0
	source := func(items ...string) OpenFunc[string] {
		return func(ctx context.Context) (storage.Iterator[string], error) {
			opened++
			return Static(items), nil
		}
	}

	iter := Concat(source("a", "b"), source("c"))

	v, err := iter.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", v)
	require.Equal(t, 1, opened)

	iter.Stop()
	require.Equal(t, 1, opened, "abandoning the stream must not open remaining sources")

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, storage.ErrIteratorDone)
}

func TestConcatPropagatesOpenError(t *testing.T) {
	ctx := context.Background()
	expectedErr := errors.New("open failed")

	iter := Concat(
		Opened(Static([]string{"a"})),
		func(ctx context.Context) (storage.Iterator[string], error) {
			return nil, expectedErr
		},
	)

	v, err := iter.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", v)

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, expectedErr)

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, storage.ErrIteratorDone)
}

func TestConcatPropagatesSourceError(t *testing.T) {
	ctx := context.Background()
	expectedErr := errors.New("source failed")

	iter := Concat(
		Opened(Static([]string{"a"})),
		Opened(Error[string](expectedErr)),
	)

	v, err := iter.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", v)

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, expectedErr)
}
