// Package app orchestrates the one-time startup sequence: open storage,
// apply migrations, then optionally authenticate and attach remote sync.
package app

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"moneta/internal/auth"
	"moneta/internal/config"
	"moneta/internal/importer"
	"moneta/internal/remote"
	"moneta/internal/remote/drive"
	"moneta/internal/remote/memory"
	"moneta/internal/storage"
	msync "moneta/internal/sync"
)

// State of the controller. Transitions are one-directional; recovery from
// Errored means building a fresh controller.
type State string

const (
	Idle           State = "idle"
	Opening        State = "opening"
	Migrating      State = "migrating"
	Authenticating State = "authenticating"
	Attaching      State = "attaching"
	Ready          State = "ready"
	Errored        State = "error"
)

// String implements fmt.Stringer
func (s State) String() string {
	return string(s)
}

// Status is the snapshot the rest of the application sees.
type Status struct {
	State State
	Ready bool
	Err   error

	// SyncWarning is set when authentication or attach failed and the app
	// degraded to offline operation. Never fatal.
	SyncWarning string
}

// Controller wires the startup sequence and owns the resulting components.
type Controller struct {
	cfg *config.Config

	Store        *storage.Store
	Categories   *storage.CategoryRepo
	Transactions *storage.TransactionRepo
	Budgets      *storage.BudgetRepo
	SyncStates   *storage.SyncStateRepo
	Snapshots    *storage.Snapshotter
	Importer     *importer.Importer
	Sync         *msync.Adapter

	mu      gosync.Mutex
	state   State
	err     error
	warning string
}

func New(cfg *config.Config) *Controller {
	return &Controller{
		cfg:   cfg,
		state: Idle,
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) fail(s State, err error) error {
	c.mu.Lock()
	c.state = Errored
	c.err = fmt.Errorf("%s: %w", s, err)
	c.mu.Unlock()
	return err
}

func (c *Controller) warn(msg string) {
	c.mu.Lock()
	c.warning = msg
	c.mu.Unlock()
}

// Status returns the current readiness snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.state,
		Ready:       c.state == Ready,
		Err:         c.err,
		SyncWarning: c.warning,
	}
}

// Run executes the startup sequence once. Failures while opening or
// migrating are fatal; failures while authenticating or attaching the
// remote degrade to Ready without sync.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(Opening)
	c.Store = storage.New(c.cfg.DBPath)
	if _, err := c.Store.Open(); err != nil {
		return c.fail(Opening, err)
	}

	c.setState(Migrating)
	if err := c.Store.Migrate(); err != nil {
		return c.fail(Migrating, err)
	}

	c.Categories = storage.NewCategoryRepo(c.Store)
	c.Transactions = storage.NewTransactionRepo(c.Store)
	c.Budgets = storage.NewBudgetRepo(c.Store)
	c.SyncStates = storage.NewSyncStateRepo(c.Store)
	c.Snapshots = storage.NewSnapshotter(c.Store)
	c.Importer = importer.New(c.Categories, c.Transactions, c.Budgets)

	c.Sync = msync.New(c.attachRemote(ctx), c.Snapshots, c.SyncStates)

	c.setState(Ready)
	slog.InfoContext(ctx, "Startup complete",
		"db_path", c.cfg.DBPath,
		"remote", c.cfg.RemoteBackend,
		"sync_attached", c.Sync.Attached())
	return nil
}

// attachRemote builds the configured remote store. Every failure is a
// warning, never an error: the local store works offline.
func (c *Controller) attachRemote(ctx context.Context) remote.Store {
	switch remote.Type(c.cfg.RemoteBackend) {
	case remote.NoneRemote, "":
		return nil

	case remote.MemoryRemote:
		c.setState(Attaching)
		return memory.New()

	case remote.DriveRemote:
		c.setState(Authenticating)
		client := &auth.Client{
			ClientJSON: c.cfg.OAuthClientJSON,
			ClientFile: c.cfg.OAuthClientFile,
			TokenJSON:  c.cfg.OAuthTokenJSON,
			TokenFile:  c.cfg.OAuthTokenFile,
		}
		creds, err := client.SignIn(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Authentication failed, continuing offline", "error", err)
			c.warn(fmt.Sprintf("sync disabled: %v", err))
			return nil
		}

		c.setState(Attaching)
		store, err := drive.New(ctx, creds.TokenSource, c.cfg.DriveFileName)
		if err != nil {
			slog.WarnContext(ctx, "Remote attach failed, continuing offline", "error", err)
			c.warn(fmt.Sprintf("sync disabled: %v", err))
			return nil
		}
		return store

	default:
		slog.WarnContext(ctx, "Unknown remote backend, continuing offline", "remote", c.cfg.RemoteBackend)
		c.warn(fmt.Sprintf("sync disabled: unknown remote backend %q", c.cfg.RemoteBackend))
		return nil
	}
}

// Close releases the storage handle.
func (c *Controller) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
