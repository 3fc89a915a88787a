package repounit

import (
	"github.com/SIXwishlist/pulp/pkg/storage"
)

// Association-level sort fields callers may use in Criteria.AssociationSort.
const (
	SortTypeID    = storage.FieldUnitTypeID
	SortOwnerType = storage.FieldOwnerType
	SortOwnerID   = storage.FieldOwnerID
	SortCreated   = storage.FieldCreated
	SortUpdated   = storage.FieldUpdated
)

// Criteria describes a unit association query: filtering, projection,
// sorting, pagination and deduplication. It is a plain value object; parsing
// and field validation from user input belong to the caller. Treat a Criteria
// as immutable once handed to the engine — the engine never mutates it and
// copies it where it needs a variant.
type Criteria struct {
	// TypeIDs restricts the query to the listed unit types. Empty means
	// "all types currently associated with the repository".
	TypeIDs []string

	// AssociationFilters narrows which association records are considered.
	AssociationFilters storage.Filter

	// AssociationFields projects association records. Nil means all fields.
	AssociationFields []string

	// AssociationSort orders the final results by association fields. When
	// set, results are reordered to association order after pagination.
	AssociationSort []storage.SortKey

	// UnitFilters narrows which unit records are returned.
	UnitFilters storage.Filter

	// UnitFields projects unit records. Nil means all fields.
	UnitFields []string

	// UnitSort orders each per-type unit cursor. Nil falls back to the
	// type's natural key fields, ascending.
	UnitSort []storage.SortKey

	// Skip discards the first n units of the chained stream. Nil means no
	// skip. Must be non-negative.
	Skip *int

	// Limit caps the number of units yielded. Nil means unbounded. Must be
	// non-negative.
	Limit *int

	// RemoveDuplicates collapses duplicate associations for the same
	// (type id, unit id) pair, keeping the earliest created.
	RemoveDuplicates bool
}

// NewCriteria returns a Criteria with defaults applied: no restrictions and
// duplicate removal enabled.
func NewCriteria() *Criteria {
	return &Criteria{RemoveDuplicates: true}
}

// WithSkip returns a copy of the criteria with the skip value set.
func (c Criteria) WithSkip(skip int) *Criteria {
	c.Skip = &skip
	return &c
}

// WithLimit returns a copy of the criteria with the limit value set.
func (c Criteria) WithLimit(limit int) *Criteria {
	c.Limit = &limit
	return &c
}

// validate re-checks the public contract at the engine boundary, before any
// storage access.
func (c *Criteria) validate() error {
	if c.Skip != nil && *c.Skip < 0 {
		return InvalidArgumentError("skip must be non-negative")
	}
	if c.Limit != nil && *c.Limit < 0 {
		return InvalidArgumentError("limit must be non-negative")
	}
	return nil
}
