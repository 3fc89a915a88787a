package storage

import (
	"errors"
	"fmt"
)

// Allocated at init time, so plain errors rather than errors carrying stacks.
var (
	// ErrNotFound if a requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownUnitType if the type registry has no entry for a unit type id.
	ErrUnknownUnitType = errors.New("unknown unit type")

	// ErrCancelled if the request context was cancelled mid-query.
	ErrCancelled = errors.New("request has been cancelled")
)

// UnknownUnitTypeError wraps ErrUnknownUnitType with the offending type id.
func UnknownUnitTypeError(typeID string) error {
	return fmt.Errorf("no collection registered for unit type '%s': %w", typeID, ErrUnknownUnitType)
}
