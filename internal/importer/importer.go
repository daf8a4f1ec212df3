// Package importer drives bulk-upserts from loosely-typed external row sets:
// spreadsheet imports and restore-from-backup. Each group is all-or-nothing,
// but one group failing never aborts the others.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"moneta/internal/core"
	"moneta/internal/storage"
)

// ImportResult reports per-group counts and every non-fatal problem hit
// along the way.
type ImportResult struct {
	CategoriesImported   int
	TransactionsImported int
	BudgetsImported      int
	Errors               []string
}

type Importer struct {
	categories   *storage.CategoryRepo
	transactions *storage.TransactionRepo
	budgets      *storage.BudgetRepo
}

func New(categories *storage.CategoryRepo, transactions *storage.TransactionRepo, budgets *storage.BudgetRepo) *Importer {
	return &Importer{
		categories:   categories,
		transactions: transactions,
		budgets:      budgets,
	}
}

// Import processes the three record groups independently. Ids in the source
// are preserved, so importing the same source twice overwrites rather than
// duplicates.
func (i *Importer) Import(ctx context.Context, src Source) ImportResult {
	var result ImportResult

	// Categories first so transactions and budgets can resolve them.
	if rows, ok := src.Group(GroupCategories); !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("source has no %q group", GroupCategories))
	} else if n, err := i.importCategories(ctx, rows); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("import %s: %v", GroupCategories, err))
	} else {
		result.CategoriesImported = n
	}

	if rows, ok := src.Group(GroupTransactions); !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("source has no %q group", GroupTransactions))
	} else if n, err := i.importTransactions(ctx, rows); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("import %s: %v", GroupTransactions, err))
	} else {
		result.TransactionsImported = n
	}

	if rows, ok := src.Group(GroupBudgets); !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("source has no %q group", GroupBudgets))
	} else if n, err := i.importBudgets(ctx, rows); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("import %s: %v", GroupBudgets, err))
	} else {
		result.BudgetsImported = n
	}

	slog.InfoContext(ctx, "Import completed",
		"categories", result.CategoriesImported,
		"transactions", result.TransactionsImported,
		"budgets", result.BudgetsImported,
		"errors", len(result.Errors))
	return result
}

func (i *Importer) importCategories(ctx context.Context, rows []Row) (int, error) {
	records := make([]core.Category, 0, len(rows))
	for idx, row := range rows {
		c := core.Category{
			ID:     stringField(row, "id"),
			Name:   stringField(row, "name"),
			Kind:   core.CategoryKind(stringField(row, "kind")),
			Active: boolField(row, "active"),
		}
		if c.ID == "" {
			c.ID = core.NewID()
		}
		if p := stringField(row, "parent_id"); p != "" {
			c.ParentID = &p
		}
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		records = append(records, c)
	}
	return i.categories.BulkUpsert(ctx, records)
}

func (i *Importer) importTransactions(ctx context.Context, rows []Row) (int, error) {
	records := make([]core.Transaction, 0, len(rows))
	for idx, row := range rows {
		date, err := core.ParseDate(stringField(row, "date"))
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		cents, err := centsField(row, "amount_cents")
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		t := core.Transaction{
			ID:          stringField(row, "id"),
			Date:        date,
			AmountCents: cents,
			CategoryID:  stringField(row, "category_id"),
			Merchant:    stringField(row, "merchant"),
			Notes:       stringField(row, "notes"),
		}
		if t.ID == "" {
			t.ID = core.NewID()
		}
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		records = append(records, t)
	}
	return i.transactions.BulkUpsert(ctx, records)
}

func (i *Importer) importBudgets(ctx context.Context, rows []Row) (int, error) {
	records := make([]core.Budget, 0, len(rows))
	for idx, row := range rows {
		cents, err := centsField(row, "budget_cents")
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		b := core.Budget{
			Month:       stringField(row, "month"),
			CategoryID:  stringField(row, "category_id"),
			BudgetCents: cents,
		}
		if b.CategoryID == "" {
			b.CategoryID = core.OverallBudget
		}
		if err := b.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", idx+1, err)
		}
		records = append(records, b)
	}
	return i.budgets.BulkUpsert(ctx, records)
}
