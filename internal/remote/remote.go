// Package remote defines the blob-store capability the sync adapter depends
// on. A remote is a whole-snapshot blob with an opaque, comparable revision
// token; no schema is imposed beyond that.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no snapshot blob exists yet on the remote.
	ErrNotFound = errors.New("remote snapshot not found")

	// ErrConflict means the remote moved past the expected revision. The
	// caller must pull before retrying; the blob was not overwritten.
	ErrConflict = errors.New("remote revision conflict")

	// ErrUnavailable wraps transport failures. Non-fatal; the next cycle
	// may recover.
	ErrUnavailable = errors.New("remote unavailable")
)

// Type selects the remote blob store variant.
type Type string

const (
	NoneRemote   Type = "none"
	DriveRemote  Type = "drive"
	MemoryRemote Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the remote type is valid
func (t Type) IsValid() bool {
	switch t {
	case NoneRemote, DriveRemote, MemoryRemote:
		return true
	default:
		return false
	}
}

// Store is the capability consumed by the sync adapter.
type Store interface {
	// Get fetches the snapshot blob and its revision token.
	Get(ctx context.Context) (data []byte, revision string, err error)

	// Put writes the blob conditioned on the remote still being at
	// expectedRevision ("" for a first write). Returns the new token.
	Put(ctx context.Context, data []byte, expectedRevision string) (newRevision string, err error)
}
