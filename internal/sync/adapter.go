// Package sync mirrors the local store to a remote snapshot blob. Pushes are
// conditioned on the revision seen by the last pull, so the adapter never
// overwrites a remote snapshot it has not merged.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moneta/internal/core"
	"moneta/internal/remote"
	"moneta/internal/storage"
)

// State of the adapter. Error is never terminal: the next successful cycle
// returns to Attached. Authentication happens before the adapter is built,
// so it is not a state here; the startup controller reports that phase.
type State string

const (
	Detached State = "detached"
	Attached State = "attached"
	Syncing  State = "syncing"
	Errored  State = "error"
)

// String implements fmt.Stringer
func (s State) String() string {
	return string(s)
}

type Adapter struct {
	remote    remote.Store
	snapshots *storage.Snapshotter
	syncState *storage.SyncStateRepo

	mu    gosync.Mutex
	state State

	group singleflight.Group
}

// New returns an adapter over the given remote. A nil remote leaves the
// adapter Detached; the local store stays fully functional.
func New(r remote.Store, snapshots *storage.Snapshotter, syncState *storage.SyncStateRepo) *Adapter {
	state := Detached
	if r != nil {
		state = Attached
	}
	return &Adapter{
		remote:    r,
		snapshots: snapshots,
		syncState: syncState,
		state:     state,
	}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Attached reports whether a remote is configured.
func (a *Adapter) Attached() bool {
	return a.State() != Detached
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Pull fetches the remote snapshot and merges it into local storage when the
// remote revision differs from the last one seen. Remote rows win on id
// collision.
func (a *Adapter) Pull(ctx context.Context) error {
	if a.remote == nil {
		return nil
	}

	data, rev, err := a.remote.Get(ctx)
	if errors.Is(err, remote.ErrNotFound) {
		slog.DebugContext(ctx, "No remote snapshot yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	st, err := a.syncState.Get(ctx)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if rev == st.LastRevision {
		slog.DebugContext(ctx, "Remote unchanged", "revision", rev)
		return nil
	}

	snap, err := core.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if err := a.snapshots.Apply(ctx, snap); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	// The merge itself marks pending changes; restore the pre-merge value so
	// local edits keep waiting for their push even if it later conflicts.
	if err := a.syncState.Record(ctx, rev, time.Now(), st.PendingChanges); err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	slog.InfoContext(ctx, "Merged remote snapshot",
		"revision", rev,
		"categories", len(snap.Categories),
		"transactions", len(snap.Transactions),
		"budgets", len(snap.Budgets))
	return nil
}

// Push serializes the full local entity set and writes it to the remote,
// conditioned on the revision being unchanged since the last pull. A moved
// remote surfaces remote.ErrConflict; pull and retry.
func (a *Adapter) Push(ctx context.Context) error {
	if a.remote == nil {
		return nil
	}

	st, err := a.syncState.Get(ctx)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	snap, err := a.snapshots.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	newRev, err := a.remote.Put(ctx, data, st.LastRevision)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if err := a.syncState.Record(ctx, newRev, time.Now(), false); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	slog.InfoContext(ctx, "Pushed local snapshot", "revision", newRev)
	return nil
}

// Cycle runs pull, then push only if local mutations occurred since the last
// sync. Concurrent cycle requests coalesce onto the in-flight one; no two
// cycles ever run at once.
func (a *Adapter) Cycle(ctx context.Context) error {
	if a.remote == nil {
		return nil
	}

	_, err, _ := a.group.Do("cycle", func() (any, error) {
		a.setState(Syncing)

		st, err := a.syncState.Get(ctx)
		if err != nil {
			a.setState(Errored)
			return nil, err
		}
		pendingBefore := st.PendingChanges

		if err := a.Pull(ctx); err != nil {
			a.setState(Errored)
			return nil, err
		}

		if pendingBefore {
			if err := a.Push(ctx); err != nil {
				a.setState(Errored)
				return nil, err
			}
		}

		a.setState(Attached)
		return nil, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Sync cycle failed", "error", err)
	}
	return err
}
