package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"moneta/internal/core"
)

// BudgetRepo provides typed access to the budgets table. The composite key
// (month, category_id) has at most one row; an upsert on conflict replaces
// the prior value.
type BudgetRepo struct {
	store *Store
}

func NewBudgetRepo(store *Store) *BudgetRepo {
	return &BudgetRepo{store: store}
}

func (r *BudgetRepo) Create(ctx context.Context, b core.Budget) error {
	_, err := r.BulkUpsert(ctx, []core.Budget{b})
	return err
}

// BulkUpsert inserts or replaces each budget by (month, category_id) as one
// transaction. The same key twice in a batch counts once; the last value in
// the batch wins. Returns the number of distinct rows written.
func (r *BudgetRepo) BulkUpsert(ctx context.Context, budgets []core.Budget) (int, error) {
	if len(budgets) == 0 {
		return 0, nil
	}

	written := 0
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string]struct{}, len(budgets))
		for _, b := range budgets {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("budget %s/%s: %w", b.Month, b.CategoryID, err)
			}
			if b.CategoryID != core.OverallBudget {
				if err := categoryExists(tx, b.CategoryID); err != nil {
					return fmt.Errorf("budget %s/%s: %w", b.Month, b.CategoryID, err)
				}
			}

			_, err := tx.Exec(`
			INSERT INTO budgets(month, category_id, budget_cents)
			VALUES (?, ?, ?)
			ON CONFLICT(month, category_id) DO UPDATE SET
			 budget_cents=excluded.budget_cents;
			`, b.Month, b.CategoryID, b.BudgetCents)
			if err != nil {
				return fmt.Errorf("upsert budget %s/%s: %w", b.Month, b.CategoryID, err)
			}
			key := b.Month + "\x00" + b.CategoryID
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				written++
			}
		}
		return markPending(tx)
	})
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "Budgets upserted", "count", written)
	return written, nil
}

func (r *BudgetRepo) Get(ctx context.Context, month, categoryID string) (core.Budget, error) {
	db := r.store.DB()
	if db == nil {
		return core.Budget{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	var b core.Budget
	err := db.QueryRowContext(ctx,
		`SELECT month, category_id, budget_cents FROM budgets WHERE month = ? AND category_id = ?`,
		month, categoryID).
		Scan(&b.Month, &b.CategoryID, &b.BudgetCents)
	if err == sql.ErrNoRows {
		return core.Budget{}, fmt.Errorf("budget %s/%s: %w", month, categoryID, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s/%s: %w", month, categoryID, err)
	}
	return b, nil
}

func (r *BudgetRepo) List(ctx context.Context, month string) ([]core.Budget, error) {
	db := r.store.DB()
	if db == nil {
		return nil, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	query := `SELECT month, category_id, budget_cents FROM budgets`
	var args []any
	if month != "" {
		query += ` WHERE month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY month, category_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Month, &b.CategoryID, &b.BudgetCents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BudgetRepo) Delete(ctx context.Context, month, categoryID string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM budgets WHERE month = ? AND category_id = ?`, month, categoryID)
		if err != nil {
			return fmt.Errorf("delete budget %s/%s: %w", month, categoryID, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("budget %s/%s: %w", month, categoryID, ErrNotFound)
		}
		return markPending(tx)
	})
}

// BudgetProgress pairs a budget row with the amount actually spent in its
// month. Spent is the absolute sum of negative amounts, the overall row
// covering every category.
type BudgetProgress struct {
	Budget     core.Budget
	SpentCents int64
}

// Progress reports budgeted versus spent for every budget row of a month.
func (r *BudgetRepo) Progress(ctx context.Context, month string) ([]BudgetProgress, error) {
	budgets, err := r.List(ctx, month)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	db := r.store.DB()
	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		query := `SELECT COALESCE(-SUM(amount_cents), 0) FROM transactions WHERE date LIKE ? AND amount_cents < 0`
		args := []any{month + "-%"}
		if b.CategoryID != core.OverallBudget {
			query += ` AND category_id = ?`
			args = append(args, b.CategoryID)
		}
		var spent int64
		if err := db.QueryRowContext(ctx, query, args...).Scan(&spent); err != nil {
			return nil, fmt.Errorf("budget progress %s/%s: %w", b.Month, b.CategoryID, err)
		}
		out = append(out, BudgetProgress{Budget: b, SpentCents: spent})
	}
	return out, nil
}
