package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"moneta/internal/core"
)

// TransactionRepo provides typed access to the transactions table.
type TransactionRepo struct {
	store *Store
}

func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// TransactionFilter narrows List. Zero value lists everything.
type TransactionFilter struct {
	Month      string // "YYYY-MM"
	CategoryID string
}

func (r *TransactionRepo) Create(ctx context.Context, t core.Transaction) error {
	_, err := r.BulkUpsert(ctx, []core.Transaction{t})
	return err
}

// BulkUpsert inserts or fully replaces each transaction by id as one
// transaction. A record whose category does not resolve fails the whole
// batch. Returns the number of distinct rows written.
func (r *TransactionRepo) BulkUpsert(ctx context.Context, transactions []core.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	written := 0
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string]struct{}, len(transactions))
		for _, t := range transactions {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}
			if err := categoryExists(tx, t.CategoryID); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}

			_, err := tx.Exec(`
			INSERT INTO transactions(id, date, amount_cents, category_id, merchant, notes)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
			 date=excluded.date,
			 amount_cents=excluded.amount_cents,
			 category_id=excluded.category_id,
			 merchant=excluded.merchant,
			 notes=excluded.notes;
			`, t.ID, t.Date.String(), t.AmountCents, t.CategoryID, t.Merchant, t.Notes)
			if err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
			}
			if _, dup := seen[t.ID]; !dup {
				seen[t.ID] = struct{}{}
				written++
			}
		}
		return markPending(tx)
	})
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "Transactions upserted", "count", written)
	return written, nil
}

func categoryExists(tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	if err != nil {
		return fmt.Errorf("look up category %s: %w", id, err)
	}
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (core.Transaction, error) {
	db := r.store.DB()
	if db == nil {
		return core.Transaction{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	var t core.Transaction
	var date string
	err := db.QueryRowContext(ctx,
		`SELECT id, date, amount_cents, category_id, merchant, notes FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &date, &t.AmountCents, &t.CategoryID, &t.Merchant, &t.Notes)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	t.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has malformed date %q: %w", id, date, err)
	}
	return t, nil
}

func (r *TransactionRepo) List(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	db := r.store.DB()
	if db == nil {
		return nil, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	query := `SELECT id, date, amount_cents, category_id, merchant, notes FROM transactions WHERE 1=1`
	var args []any
	if filter.Month != "" {
		query += ` AND date LIKE ?`
		args = append(args, filter.Month+"-%")
	}
	if filter.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}
	query += ` ORDER BY date, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		if err := rows.Scan(&t.ID, &date, &t.AmountCents, &t.CategoryID, &t.Merchant, &t.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s has malformed date %q: %w", t.ID, date, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return markPending(tx)
	})
}

// MonthOverview aggregates the month total and per-category sums.
func (r *TransactionRepo) MonthOverview(ctx context.Context, month string) (core.MonthOverview, error) {
	db := r.store.DB()
	if db == nil {
		return core.MonthOverview{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	overview := core.MonthOverview{Month: month}

	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE date LIKE ?`, month+"-%").
		Scan(&overview.Total.Cents)
	if err != nil {
		return overview, fmt.Errorf("get month total: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
	SELECT category_id, SUM(amount_cents)
	FROM transactions WHERE date LIKE ?
	GROUP BY category_id ORDER BY SUM(amount_cents)`, month+"-%")
	if err != nil {
		return overview, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.CategoryID, &ca.Amount.Cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	return overview, rows.Err()
}
