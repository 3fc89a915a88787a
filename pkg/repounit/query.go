// Package repounit implements the repo-unit association query engine: it
// resolves which content units are associated with a repository by joining
// the association collection against the per-type unit collections, producing
// a single ordered, paginated, deduplicated result stream.
package repounit

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/SIXwishlist/pulp/internal/iterator"
	"github.com/SIXwishlist/pulp/pkg/logger"
	"github.com/SIXwishlist/pulp/pkg/registry"
	"github.com/SIXwishlist/pulp/pkg/storage"
)

var tracer = otel.Tracer("pulp/pkg/repounit")

// UnitIterator is the result stream of a units query: association records
// with the matched unit attached as Metadata.
type UnitIterator = storage.Iterator[*storage.AssociationRecord]

// AssociationQuery answers unit association queries against a datastore and
// type registry.
type AssociationQuery struct {
	ds       storage.Datastore
	registry registry.TypeRegistry
	logger   logger.Logger
}

// AssociationQueryOption configures an AssociationQuery.
type AssociationQueryOption func(*AssociationQuery)

// WithLogger overrides the default noop logger.
func WithLogger(l logger.Logger) AssociationQueryOption {
	return func(q *AssociationQuery) {
		q.logger = l
	}
}

// NewAssociationQuery builds a query engine over the given datastore and
// type registry.
func NewAssociationQuery(ds storage.Datastore, reg registry.TypeRegistry, opts ...AssociationQueryOption) *AssociationQuery {
	q := &AssociationQuery{
		ds:       ds,
		registry: reg,
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// GetUnits returns the units associated with the repository, as a lazy
// stream driven by the provided criteria. Association records are read and
// indexed eagerly (they are small metadata); unit payloads are streamed from
// the per-type collections as the caller pulls.
//
// The caller must exhaust or Stop the returned iterator.
func (q *AssociationQuery) GetUnits(ctx context.Context, repoID string, criteria *Criteria) (UnitIterator, error) {
	ctx, span := tracer.Start(ctx, "repounit.GetUnits")
	defer span.End()

	if repoID == "" {
		return nil, InvalidArgumentError("repo id must not be empty")
	}
	if criteria == nil {
		criteria = NewCriteria()
	}
	if err := criteria.validate(); err != nil {
		return nil, err
	}

	associations, err := q.associationCursor(ctx, repoID, criteria)
	if err != nil {
		return nil, err
	}

	if criteria.RemoveDuplicates {
		associations = iterator.NewFilteredIterator(associations, dedupFilter())
	}

	index, err := buildAssociationIndex(ctx, associations)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	typeIDs, err := q.unitTypeIDs(ctx, repoID, criteria)
	if err != nil {
		return nil, err
	}

	sources := make([]iterator.OpenFunc[storage.Document], 0, len(typeIDs))
	for _, typeID := range typeIDs {
		sources = append(sources, q.unitCursorOpener(typeID, criteria, index.ids))
	}

	units := iterator.Concat(sources...)

	// Pagination runs over the type-ascending chained order, before any
	// association-derived reordering. See the pagination test locking this
	// interaction down.
	units = iterator.SkipLimit(units, criteria.Skip, criteria.Limit)

	if criteria.AssociationSort != nil {
		units = newReorderIterator(index.ids, units)
	}

	return newMergeIterator(index, units, q.logger), nil
}

// GetUnitsList is GetUnits fully materialized into an ordered slice.
func (q *AssociationQuery) GetUnitsList(ctx context.Context, repoID string, criteria *Criteria) ([]*storage.AssociationRecord, error) {
	units, err := q.GetUnits(ctx, repoID, criteria)
	if err != nil {
		return nil, err
	}
	return iterator.Collect(ctx, units)
}

// GetUnitsAcrossTypes retrieves units associated with the repository across
// all unit types. As the result may span multiple types, sort fields are
// conceptually restricted to association-level fields (type id, created,
// updated, owner type, owner id).
func (q *AssociationQuery) GetUnitsAcrossTypes(ctx context.Context, repoID string, criteria *Criteria) (UnitIterator, error) {
	return q.GetUnits(ctx, repoID, criteria)
}

// GetUnitsByType retrieves units of the given type associated with the
// repository. Any type restriction already present on the criteria is
// overridden; the caller's criteria value is left untouched.
func (q *AssociationQuery) GetUnitsByType(ctx context.Context, repoID, typeID string, criteria *Criteria) (UnitIterator, error) {
	if typeID == "" {
		return nil, InvalidArgumentError("unit type id must not be empty")
	}
	if criteria == nil {
		criteria = NewCriteria()
	}

	restricted := *criteria
	restricted.TypeIDs = []string{typeID}

	return q.GetUnits(ctx, repoID, &restricted)
}

// GetUnitIDs returns the ids of content units associated with the repo,
// grouped by unit type. A unit id is listed once per type even when multiple
// associations exist. If unitTypeID is non-empty only that type is queried.
//
// Deprecated: use GetUnits with AssociationFields limited to the ids.
func (q *AssociationQuery) GetUnitIDs(ctx context.Context, repoID, unitTypeID string) (map[string][]string, error) {
	ctx, span := tracer.Start(ctx, "repounit.GetUnitIDs")
	defer span.End()

	if repoID == "" {
		return nil, InvalidArgumentError("repo id must not be empty")
	}

	collection := q.ds.Associations()

	var typeIDs []string
	if unitTypeID == "" {
		discovered, err := collection.Distinct(ctx, storage.FieldUnitTypeID, storage.Filter{storage.FieldRepoID: repoID})
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		typeIDs = storage.NewSortedSet(discovered...).Values()
	} else {
		typeIDs = []string{unitTypeID}
	}

	// Distinct operates on a single key, so one call per unit type. The
	// number of types is small.
	unitIDs := map[string][]string{}
	for _, typeID := range typeIDs {
		ids, err := collection.Distinct(ctx, storage.FieldUnitID, storage.Filter{
			storage.FieldRepoID:     repoID,
			storage.FieldUnitTypeID: typeID,
		})
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		if len(ids) == 0 {
			continue
		}
		unitIDs[typeID] = ids
	}

	return unitIDs, nil
}

// associationCursor builds the sorted, filtered association stream for the
// repository. Sorting by "created" ascending first is crucial to removing
// duplicate associations; any caller-specified "created" key is dropped to
// avoid a duplicate sort key.
func (q *AssociationQuery) associationCursor(ctx context.Context, repoID string, criteria *Criteria) (storage.Iterator[*storage.AssociationRecord], error) {
	filter := criteria.AssociationFilters.Clone()
	filter[storage.FieldRepoID] = repoID
	if len(criteria.TypeIDs) > 0 {
		filter[storage.FieldUnitTypeID] = storage.InStrings(criteria.TypeIDs)
	}

	sort := []storage.SortKey{{Field: storage.FieldCreated}}
	for _, key := range criteria.AssociationSort {
		if key.Field == storage.FieldCreated {
			continue
		}
		sort = append(sort, key)
	}

	docs, err := q.ds.Associations().Find(ctx, filter, storage.FindOptions{
		Fields: criteria.AssociationFields,
		Sort:   sort,
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	return iterator.Map(docs, storage.AssociationFromDocument), nil
}

// dedupFilter returns a stateful filter passing only the first association
// seen for each (type id, unit id) pair. The input is sorted by "created"
// ascending, so the survivor is the earliest. The seen-set grows with the
// number of distinct associations, never with unit payloads.
func dedupFilter() iterator.FilterFunc[*storage.AssociationRecord] {
	seen := map[string]struct{}{}

	return func(rec *storage.AssociationRecord) (bool, error) {
		key := rec.DedupKey()
		if _, dup := seen[key]; dup {
			return false, nil
		}
		seen[key] = struct{}{}
		return true, nil
	}
}

// unitTypeIDs resolves the set of unit types to query: the criteria's, or
// every type currently associated with the repository. The result is always
// sorted ascending so iteration order never depends on how the storage layer
// returned the values.
func (q *AssociationQuery) unitTypeIDs(ctx context.Context, repoID string, criteria *Criteria) ([]string, error) {
	if len(criteria.TypeIDs) > 0 {
		return storage.NewSortedSet(criteria.TypeIDs...).Values(), nil
	}

	discovered, err := q.ds.Associations().Distinct(ctx, storage.FieldUnitTypeID, storage.Filter{storage.FieldRepoID: repoID})
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	return storage.NewSortedSet(discovered...).Values(), nil
}

// unitCursorOpener defers opening the unit cursor for one type until the
// chained stream reaches it. The full requested id set is passed rather than
// a per-type subset: ids belonging to other types simply match nothing in
// this type's collection.
func (q *AssociationQuery) unitCursorOpener(typeID string, criteria *Criteria, unitIDs []string) iterator.OpenFunc[storage.Document] {
	return func(ctx context.Context) (storage.Iterator[storage.Document], error) {
		collection, err := q.registry.UnitCollection(typeID)
		if err != nil {
			return nil, err
		}

		filter := criteria.UnitFilters.Clone()
		filter[storage.FieldID] = storage.InStrings(unitIDs)

		sort := criteria.UnitSort
		if sort == nil {
			keyFields, err := q.registry.NaturalKeyFields(typeID)
			if err != nil {
				return nil, err
			}
			for _, field := range keyFields {
				sort = append(sort, storage.SortKey{Field: field})
			}
		}

		docs, err := collection.Find(ctx, filter, storage.FindOptions{
			Fields: criteria.UnitFields,
			Sort:   sort,
		})
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		return docs, nil
	}
}

// wrapStorageErr wraps backend failures as StorageQueryError, leaving
// terminal iteration, cancellation and already-wrapped errors alone.
func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}

	var alreadyWrapped *StorageQueryError
	if errors.Is(err, storage.ErrIteratorDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, storage.ErrUnknownUnitType) ||
		errors.As(err, &alreadyWrapped) {
		return err
	}

	return &StorageQueryError{Err: err}
}
