package repounit

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned, before any storage access, when a caller
// violates the public contract (empty repo id, negative skip or limit).
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError wraps ErrInvalidArgument with detail.
func InvalidArgumentError(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrInvalidArgument)
}

// StorageQueryError wraps any failure surfaced by the underlying
// find/sort/distinct calls. The cause is preserved unchanged and reachable
// through errors.Is/As; the engine never retries.
type StorageQueryError struct {
	Err error
}

func (e *StorageQueryError) Error() string {
	return fmt.Sprintf("storage query failed: %v", e.Err)
}

func (e *StorageQueryError) Unwrap() error {
	return e.Err
}

// DataConsistencyError reports a unit record observed with no matching
// association entry at merge time. It is fatal for the single record only:
// the merge stage logs it and continues with the rest of the stream.
type DataConsistencyError struct {
	UnitID string
}

func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("unit '%s' has no matching association record", e.UnitID)
}
