package iterator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

func intPtr(v int) *int { return &v }

func TestSkipLimit(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ctx := context.Background()

	tests := []struct {
		name           string
		values         []string
		skip           *int
		limit          *int
		expectedValues []string
	}{
		{
			name:           "should_pass_through_when_no_window",
			values:         []string{"a", "b", "c"},
			expectedValues: []string{"a", "b", "c"},
		},
		{
			name:           "should_skip_leading_elements",
			values:         []string{"a", "b", "c"},
			skip:           intPtr(2),
			expectedValues: []string{"c"},
		},
		{
			name:           "should_limit_elements",
			values:         []string{"a", "b", "c"},
			limit:          intPtr(2),
			expectedValues: []string{"a", "b"},
		},
		{
			name:           "should_apply_skip_then_limit",
			values:         []string{"a", "b", "c"},
			skip:           intPtr(1),
			limit:          intPtr(1),
			expectedValues: []string{"b"},
		},
		{
			name:           "should_end_early_when_skip_exceeds_stream",
			values:         []string{"a", "b"},
			skip:           intPtr(5),
			expectedValues: nil,
		},
		{
			name:           "should_yield_nothing_for_zero_limit",
			values:         []string{"a", "b"},
			limit:          intPtr(0),
			expectedValues: nil,
		},
		{
			name:           "should_tolerate_limit_past_end",
			values:         []string{"a"},
			limit:          intPtr(10),
			expectedValues: []string{"a"},
		},
		{
			name:           "should_treat_zero_skip_as_no_skip",
			values:         []string{"a", "b"},
			skip:           intPtr(0),
			expectedValues: []string{"a", "b"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			iter := SkipLimit(Static(test.values), test.skip, test.limit)

			values, err := Collect(ctx, iter)
			require.NoError(t, err)
			require.Equal(t, test.expectedValues, values)

			_, err = iter.Next(ctx)
			require.ErrorIs(t, err, storage.ErrIteratorDone)
		})
	}
}

func TestSkipLimitStopsUpstreamAtLimit(t *testing.T) {
	ctx := context.Background()

	upstream := newStub("a", "b", "c")
	iter := SkipLimit[string](upstream, nil, intPtr(1))

	v, err := iter.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", v)
	require.False(t, upstream.stopped)

	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, storage.ErrIteratorDone)
	require.True(t, upstream.stopped, "hitting the limit must release the upstream cursor")
}
