package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the database handle could not be opened or
	// acquired. Startup cannot proceed past this.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by single-record lookups.
	ErrNotFound = errors.New("record not found")

	// ErrCategoryInUse rejects deleting a category still referenced by a
	// transaction or budget.
	ErrCategoryInUse = errors.New("category is referenced and cannot be deleted")

	// ErrUnknownParent rejects a category whose parent does not resolve.
	ErrUnknownParent = errors.New("parent category does not exist")

	// ErrParentKindMismatch rejects a category whose parent has a different kind.
	ErrParentKindMismatch = errors.New("parent category has a different kind")

	// ErrNestedParent rejects more than one level of category nesting.
	ErrNestedParent = errors.New("parent category is itself nested")

	// ErrUnknownCategory rejects a record whose category id does not resolve.
	ErrUnknownCategory = errors.New("category does not exist")
)

// MigrationError reports the specific migration whose apply failed. The
// failing version is never recorded as applied and later migrations are not
// attempted.
type MigrationError struct {
	Version uint
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d failed: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
