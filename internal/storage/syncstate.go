package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SyncState is the single persisted record tracking the last remote revision
// this device has seen and whether local writes happened since.
type SyncState struct {
	LastRevision   string
	LastSyncedAt   time.Time
	PendingChanges bool
}

// SyncStateRepo manages the single sync_state row. The row is created on
// first write and never duplicated.
type SyncStateRepo struct {
	store *Store
}

func NewSyncStateRepo(store *Store) *SyncStateRepo {
	return &SyncStateRepo{store: store}
}

func (r *SyncStateRepo) Get(ctx context.Context) (SyncState, error) {
	db := r.store.DB()
	if db == nil {
		return SyncState{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	var s SyncState
	var syncedAt string
	var pending int
	err := db.QueryRowContext(ctx,
		`SELECT last_revision, last_synced_at, pending_changes FROM sync_state WHERE id = 1`).
		Scan(&s.LastRevision, &syncedAt, &pending)
	if err == sql.ErrNoRows {
		// No sync has run yet: empty revision, changes considered pending
		// so the first cycle pushes.
		return SyncState{PendingChanges: true}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("get sync state: %w", err)
	}
	if syncedAt != "" {
		if s.LastSyncedAt, err = time.Parse(time.RFC3339, syncedAt); err != nil {
			return SyncState{}, fmt.Errorf("sync state has malformed timestamp %q: %w", syncedAt, err)
		}
	}
	s.PendingChanges = pending != 0
	return s, nil
}

// Record stores the revision seen by the last successful pull or push and
// sets the pending-changes marker to pending. A push passes false: the remote
// now holds everything local. A pull passes the value it observed before
// merging, so local edits awaiting a push survive the merge's own marking.
func (r *SyncStateRepo) Record(ctx context.Context, revision string, at time.Time, pending bool) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
		INSERT INTO sync_state(id, last_revision, last_synced_at, pending_changes)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 last_revision=excluded.last_revision,
		 last_synced_at=excluded.last_synced_at,
		 pending_changes=excluded.pending_changes;
		`, revision, at.UTC().Format(time.RFC3339), boolInt(pending))
		if err != nil {
			return fmt.Errorf("record sync state: %w", err)
		}
		return nil
	})
}

// markPending flips the pending-changes marker inside the caller's write
// transaction, so the flag commits or rolls back with the write it marks.
func markPending(tx *sql.Tx) error {
	_, err := tx.Exec(`
	INSERT INTO sync_state(id, last_revision, last_synced_at, pending_changes)
	VALUES (1, '', '', 1)
	ON CONFLICT(id) DO UPDATE SET pending_changes=1;
	`)
	if err != nil {
		return fmt.Errorf("mark pending changes: %w", err)
	}
	return nil
}
