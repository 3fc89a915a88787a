package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SIXwishlist/pulp/pkg/storage"
)

func TestToBSON(t *testing.T) {
	tests := []struct {
		name     string
		filter   storage.Filter
		expected bson.M
	}{
		{
			name:     "should_translate_nil_filter_to_match_all",
			filter:   nil,
			expected: bson.M{},
		},
		{
			name:     "should_keep_equality_terms",
			filter:   storage.Filter{storage.FieldRepoID: "demo"},
			expected: bson.M{storage.FieldRepoID: "demo"},
		},
		{
			name:   "should_translate_membership_to_dollar_in",
			filter: storage.Filter{storage.FieldUnitTypeID: storage.InStrings([]string{"rpm", "erratum"})},
			expected: bson.M{
				storage.FieldUnitTypeID: bson.M{"$in": []any{"rpm", "erratum"}},
			},
		},
		{
			name: "should_mix_equality_and_membership",
			filter: storage.Filter{
				storage.FieldRepoID: "demo",
				storage.FieldUnitID: storage.In{"u1"},
			},
			expected: bson.M{
				storage.FieldRepoID: "demo",
				storage.FieldUnitID: bson.M{"$in": []any{"u1"}},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, toBSON(test.filter))
		})
	}
}

func TestFromBSON(t *testing.T) {
	objectID := primitive.NewObjectID()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	doc := fromBSON(bson.M{
		storage.FieldID:      objectID,
		storage.FieldCreated: primitive.NewDateTimeFromTime(created),
		"tags":               primitive.A{"a", "b"},
		"name":               "bash",
	})

	require.Equal(t, objectID.Hex(), doc[storage.FieldID])
	require.Equal(t, []any{"a", "b"}, doc["tags"])
	require.Equal(t, "bash", doc["name"])

	gotCreated, ok := doc[storage.FieldCreated].(time.Time)
	require.True(t, ok)
	require.True(t, created.Equal(gotCreated))
	require.Equal(t, time.UTC, gotCreated.Location())
}

// newDocumentCursor builds a cursorIterator over an in-process driver cursor,
// so the adapter is exercised without a running server.
func newDocumentCursor(t *testing.T, docs ...any) *cursorIterator {
	t.Helper()

	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)
	return &cursorIterator{cursor: cursor}
}

func TestCursorIterator(t *testing.T) {
	ctx := context.Background()

	t.Run("should_yield_normalized_documents_then_done", func(t *testing.T) {
		id := primitive.NewObjectID()
		iter := newDocumentCursor(t,
			bson.D{{Key: storage.FieldID, Value: id}, {Key: "name", Value: "bash"}},
			bson.D{{Key: storage.FieldID, Value: "u2"}, {Key: "name", Value: "coreutils"}},
		)
		defer iter.Stop()

		first, err := iter.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, id.Hex(), first[storage.FieldID])
		require.Equal(t, "bash", first["name"])

		second, err := iter.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, "u2", second[storage.FieldID])
		require.Equal(t, "coreutils", second["name"])

		_, err = iter.Next(ctx)
		require.ErrorIs(t, err, storage.ErrIteratorDone)

		_, err = iter.Next(ctx)
		require.ErrorIs(t, err, storage.ErrIteratorDone)
	})

	t.Run("should_return_done_after_stop", func(t *testing.T) {
		iter := newDocumentCursor(t, bson.D{{Key: storage.FieldID, Value: "u1"}})
		iter.Stop()

		_, err := iter.Next(ctx)
		require.ErrorIs(t, err, storage.ErrIteratorDone)
	})

	t.Run("should_tolerate_repeated_stop", func(t *testing.T) {
		iter := newDocumentCursor(t, bson.D{{Key: storage.FieldID, Value: "u1"}})
		iter.Stop()
		iter.Stop()
	})
}
