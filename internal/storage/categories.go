package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"moneta/internal/core"
)

// CategoryRepo provides typed access to the categories table. It holds no
// state of its own beyond the store handle.
type CategoryRepo struct {
	store *Store
}

func NewCategoryRepo(store *Store) *CategoryRepo {
	return &CategoryRepo{store: store}
}

// CategoryFilter narrows List. Zero value lists everything.
type CategoryFilter struct {
	Kind       core.CategoryKind
	ActiveOnly bool
}

func (r *CategoryRepo) Create(ctx context.Context, c core.Category) error {
	_, err := r.BulkUpsert(ctx, []core.Category{c})
	return err
}

// BulkUpsert inserts or fully replaces each category by id as one
// transaction. Any invalid record fails the whole batch; no partial state is
// committed. Returns the number of distinct rows written.
func (r *CategoryRepo) BulkUpsert(ctx context.Context, categories []core.Category) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}

	written := 0
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		// Parents may arrive in the same batch, in any order. Resolve
		// against batch and table together.
		batch := make(map[string]core.Category, len(categories))
		for _, c := range categories {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("category %s: %w", c.ID, err)
			}
			batch[c.ID] = c
		}

		for _, c := range categories {
			if c.ParentID != nil {
				if err := checkParent(tx, batch, c); err != nil {
					return fmt.Errorf("category %s: %w", c.ID, err)
				}
			}
		}

		seen := make(map[string]struct{}, len(categories))
		for _, c := range categories {
			_, err := tx.Exec(`
			INSERT INTO categories(id, name, kind, parent_id, active)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
			 name=excluded.name,
			 kind=excluded.kind,
			 parent_id=excluded.parent_id,
			 active=excluded.active;
			`, c.ID, c.Name, c.Kind.String(), c.ParentID, boolInt(c.Active))
			if err != nil {
				return fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
			if _, dup := seen[c.ID]; !dup {
				seen[c.ID] = struct{}{}
				written++
			}
		}
		return markPending(tx)
	})
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "Categories upserted", "count", written)
	return written, nil
}

// checkParent enforces the hierarchy invariants: the parent must exist, share
// the child's kind, and be a root category (one level of nesting only).
func checkParent(tx *sql.Tx, batch map[string]core.Category, c core.Category) error {
	parentID := *c.ParentID

	if p, ok := batch[parentID]; ok {
		if p.Kind != c.Kind {
			return ErrParentKindMismatch
		}
		if p.ParentID != nil {
			return ErrNestedParent
		}
		return nil
	}

	var kind string
	var grandparent sql.NullString
	err := tx.QueryRow(`SELECT kind, parent_id FROM categories WHERE id = ?`, parentID).
		Scan(&kind, &grandparent)
	if err == sql.ErrNoRows {
		return ErrUnknownParent
	}
	if err != nil {
		return fmt.Errorf("look up parent %s: %w", parentID, err)
	}
	if core.CategoryKind(kind) != c.Kind {
		return ErrParentKindMismatch
	}
	if grandparent.Valid {
		return ErrNestedParent
	}
	return nil
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (core.Category, error) {
	db := r.store.DB()
	if db == nil {
		return core.Category{}, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	var c core.Category
	var kind string
	var parent sql.NullString
	var active int
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, parent_id, active FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &kind, &parent, &active)
	if err == sql.ErrNoRows {
		return core.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	c.Kind = core.CategoryKind(kind)
	if parent.Valid {
		p := parent.String
		c.ParentID = &p
	}
	c.Active = active != 0
	return c, nil
}

func (r *CategoryRepo) List(ctx context.Context, filter CategoryFilter) ([]core.Category, error) {
	db := r.store.DB()
	if db == nil {
		return nil, fmt.Errorf("%w: store is not open", ErrUnavailable)
	}

	query := `SELECT id, name, kind, parent_id, active FROM categories WHERE 1=1`
	var args []any
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind.String())
	}
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		var parent sql.NullString
		var active int
		if err := rows.Scan(&c.ID, &c.Name, &kind, &parent, &active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.CategoryKind(kind)
		if parent.Valid {
			p := parent.String
			c.ParentID = &p
		}
		c.Active = active != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a category. A category referenced by a transaction, a
// budget, or a child category is rejected with ErrCategoryInUse.
func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		var refs int
		err := tx.QueryRow(`
		SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
		     + (SELECT COUNT(*) FROM budgets WHERE category_id = ?)
		     + (SELECT COUNT(*) FROM categories WHERE parent_id = ?)`,
			id, id, id).Scan(&refs)
		if err != nil {
			return fmt.Errorf("count category references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("category %s: %w", id, ErrCategoryInUse)
		}

		res, err := tx.Exec(`DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		return markPending(tx)
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
