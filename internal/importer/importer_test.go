package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"moneta/internal/core"
	"moneta/internal/storage"
)

func newTestRepos(t *testing.T) (*storage.Store, *storage.CategoryRepo, *storage.TransactionRepo, *storage.BudgetRepo) {
	t.Helper()
	s := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, storage.NewCategoryRepo(s), storage.NewTransactionRepo(s), storage.NewBudgetRepo(s)
}

func fullSource() MapSource {
	return MapSource{
		GroupCategories: {
			{"id": "c1", "name": "Food", "kind": "expense"},
		},
		GroupTransactions: {
			{"id": "t1", "date": "2024-01-05", "amount_cents": float64(-1200), "category_id": "c1", "merchant": "Cafe"},
		},
		GroupBudgets: {
			{"month": "2024-01", "category_id": "c1", "budget_cents": "50000"},
		},
	}
}

func TestImportAllGroups(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)
	ctx := context.Background()

	result := imp.Import(ctx, fullSource())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.CategoriesImported != 1 || result.TransactionsImported != 1 || result.BudgetsImported != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			result.CategoriesImported, result.TransactionsImported, result.BudgetsImported)
	}

	c, err := categories.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if !c.Active {
		t.Error("category without an active field should default to active")
	}

	tx, err := transactions.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.AmountCents != -1200 || tx.Merchant != "Cafe" {
		t.Errorf("unexpected transaction: %+v", tx)
	}

	b, err := budgets.Get(ctx, "2024-01", "c1")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if b.BudgetCents != 50000 {
		t.Errorf("string cents should coerce, got %d", b.BudgetCents)
	}
}

func TestImportMissingGroupIsIsolated(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)

	src := fullSource()
	delete(src, GroupBudgets)

	result := imp.Import(context.Background(), src)
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], GroupBudgets) {
		t.Errorf("error should name the missing group: %q", result.Errors[0])
	}
	if result.CategoriesImported != 1 || result.TransactionsImported != 1 {
		t.Errorf("other groups should still import: %d/%d",
			result.CategoriesImported, result.TransactionsImported)
	}
	if result.BudgetsImported != 0 {
		t.Errorf("missing group should import nothing, got %d", result.BudgetsImported)
	}
}

func TestImportBadGroupDoesNotAbortOthers(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)
	ctx := context.Background()

	src := fullSource()
	src[GroupTransactions] = []Row{
		{"id": "t1", "date": "2024-01-05", "amount_cents": float64(-1200), "category_id": "c1"},
		{"id": "t2", "date": "not-a-date", "amount_cents": float64(-100), "category_id": "c1"},
	}

	result := imp.Import(ctx, src)
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "row 2") {
		t.Errorf("error should name the failing row: %q", result.Errors[0])
	}
	if result.TransactionsImported != 0 {
		t.Error("a failing group must import nothing")
	}
	if result.CategoriesImported != 1 || result.BudgetsImported != 1 {
		t.Errorf("healthy groups should import: %d/%d", result.CategoriesImported, result.BudgetsImported)
	}

	// The failed group's batch rolled back wholesale.
	txs, err := transactions.List(ctx, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("expected no transactions after failed group, got %d", len(txs))
	}
}

func TestImportTwiceIsIdempotent(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)
	ctx := context.Background()

	first := imp.Import(ctx, fullSource())
	second := imp.Import(ctx, fullSource())
	if len(first.Errors) != 0 || len(second.Errors) != 0 {
		t.Fatalf("unexpected errors: %v / %v", first.Errors, second.Errors)
	}

	cats, err := categories.List(ctx, storage.CategoryFilter{})
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	txs, err := transactions.List(ctx, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	buds, err := budgets.List(ctx, "")
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(cats) != 1 || len(txs) != 1 || len(buds) != 1 {
		t.Errorf("re-import must overwrite, not duplicate: %d/%d/%d", len(cats), len(txs), len(buds))
	}
}

func TestImportGeneratesMissingIDs(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)
	ctx := context.Background()

	src := MapSource{
		GroupCategories: {
			{"name": "Food", "kind": "expense"},
		},
		GroupTransactions: {},
		GroupBudgets:      {},
	}
	result := imp.Import(ctx, src)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	cats, err := categories.List(ctx, storage.CategoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 1 || cats[0].ID == "" {
		t.Errorf("row without id should get a generated one: %+v", cats)
	}
}

func TestImportBudgetDefaultsToOverall(t *testing.T) {
	_, categories, transactions, budgets := newTestRepos(t)
	imp := New(categories, transactions, budgets)
	ctx := context.Background()

	src := MapSource{
		GroupCategories:   {},
		GroupTransactions: {},
		GroupBudgets: {
			{"month": "2024-01", "budget_cents": float64(200000)},
		},
	}
	result := imp.Import(ctx, src)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	b, err := budgets.Get(ctx, "2024-01", core.OverallBudget)
	if err != nil {
		t.Fatalf("budget without category should land on the overall row: %v", err)
	}
	if b.BudgetCents != 200000 {
		t.Errorf("budget = %d, want 200000", b.BudgetCents)
	}
}
