package storage

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
)

// Snapshotter assembles and applies whole-data-set snapshots through the
// entity repositories, so every write path shares one set of invariants.
type Snapshotter struct {
	store        *Store
	categories   *CategoryRepo
	transactions *TransactionRepo
	budgets      *BudgetRepo
}

func NewSnapshotter(store *Store) *Snapshotter {
	return &Snapshotter{
		store:        store,
		categories:   NewCategoryRepo(store),
		transactions: NewTransactionRepo(store),
		budgets:      NewBudgetRepo(store),
	}
}

// Snapshot serializes the full current local entity set.
func (s *Snapshotter) Snapshot(ctx context.Context) (core.Snapshot, error) {
	db := s.store.DB()
	if db == nil {
		return core.Snapshot{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	version, err := CurrentVersion(db)
	if err != nil {
		return core.Snapshot{}, err
	}

	cats, err := s.categories.List(ctx, CategoryFilter{})
	if err != nil {
		return core.Snapshot{}, err
	}
	txs, err := s.transactions.List(ctx, TransactionFilter{})
	if err != nil {
		return core.Snapshot{}, err
	}
	buds, err := s.budgets.List(ctx, "")
	if err != nil {
		return core.Snapshot{}, err
	}

	snap := core.Snapshot{
		SchemaVersion: int(version),
		ExportedAt:    time.Now().UTC(),
	}
	for _, c := range cats {
		snap.Categories = append(snap.Categories, core.FromCategory(c))
	}
	for _, t := range txs {
		snap.Transactions = append(snap.Transactions, core.FromTransaction(t))
	}
	for _, b := range buds {
		snap.Budgets = append(snap.Budgets, core.FromBudget(b))
	}
	return snap, nil
}

// Apply merges a snapshot into local storage. Rows in the snapshot win on id
// collision; local rows absent from the snapshot are kept.
func (s *Snapshotter) Apply(ctx context.Context, snap core.Snapshot) error {
	cats := make([]core.Category, 0, len(snap.Categories))
	for _, sc := range snap.Categories {
		cats = append(cats, sc.ToCategory())
	}
	txs := make([]core.Transaction, 0, len(snap.Transactions))
	for _, st := range snap.Transactions {
		t, err := st.ToTransaction()
		if err != nil {
			return err
		}
		txs = append(txs, t)
	}
	buds := make([]core.Budget, 0, len(snap.Budgets))
	for _, sb := range snap.Budgets {
		buds = append(buds, sb.ToBudget())
	}

	// Categories first so transactions and budgets resolve.
	if _, err := s.categories.BulkUpsert(ctx, cats); err != nil {
		return fmt.Errorf("merge categories: %w", err)
	}
	if _, err := s.transactions.BulkUpsert(ctx, txs); err != nil {
		return fmt.Errorf("merge transactions: %w", err)
	}
	if _, err := s.budgets.BulkUpsert(ctx, buds); err != nil {
		return fmt.Errorf("merge budgets: %w", err)
	}
	return nil
}
