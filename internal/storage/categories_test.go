package storage

import (
	"context"
	"errors"
	"testing"

	"moneta/internal/core"
)

func TestCategoryCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := NewCategoryRepo(s)
	ctx := context.Background()

	c := core.Category{ID: "c1", Name: "Food", Kind: core.Expense, Active: true}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Food" || got.Kind != core.Expense || !got.Active || got.ParentID != nil {
		t.Errorf("unexpected category: %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id should return ErrNotFound, got %v", err)
	}
}

func TestCategoryBulkUpsertReplacesByID(t *testing.T) {
	s := newTestStore(t)
	repo := NewCategoryRepo(s)
	ctx := context.Background()

	if _, err := repo.BulkUpsert(ctx, []core.Category{
		{ID: "c1", Name: "Food", Kind: core.Expense, Active: true},
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	n, err := repo.BulkUpsert(ctx, []core.Category{
		{ID: "c1", Name: "Groceries", Kind: core.Expense, Active: false},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Groceries" || got.Active {
		t.Errorf("upsert should replace the row fully, got %+v", got)
	}

	all, err := repo.List(ctx, CategoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single row after replace, got %d", len(all))
	}
}

func TestCategoryBulkUpsertAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	repo := NewCategoryRepo(s)
	ctx := context.Background()

	batch := []core.Category{
		{ID: "c1", Name: "Food", Kind: core.Expense, Active: true},
		{ID: "c2", Name: "", Kind: core.Expense, Active: true}, // invalid
		{ID: "c3", Name: "Rent", Kind: core.Expense, Active: true},
	}
	if _, err := repo.BulkUpsert(ctx, batch); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	all, err := repo.List(ctx, CategoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("failed batch must commit nothing, found %d rows", len(all))
	}
}

func TestCategoryParentRules(t *testing.T) {
	s := newTestStore(t)
	repo := NewCategoryRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "root-exp", "Household", core.Expense)
	seedCategory(t, s, "root-inc", "Salary", core.Income)

	parent := func(id string) *string { return &id }

	t.Run("valid child", func(t *testing.T) {
		c := core.Category{ID: "child", Name: "Cleaning", Kind: core.Expense, ParentID: parent("root-exp"), Active: true}
		if _, err := repo.BulkUpsert(ctx, []core.Category{c}); err != nil {
			t.Fatalf("valid child rejected: %v", err)
		}
	})

	t.Run("unknown parent", func(t *testing.T) {
		c := core.Category{ID: "c-bad", Name: "X", Kind: core.Expense, ParentID: parent("nope"), Active: true}
		if _, err := repo.BulkUpsert(ctx, []core.Category{c}); !errors.Is(err, ErrUnknownParent) {
			t.Errorf("expected ErrUnknownParent, got %v", err)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		c := core.Category{ID: "c-bad", Name: "X", Kind: core.Expense, ParentID: parent("root-inc"), Active: true}
		if _, err := repo.BulkUpsert(ctx, []core.Category{c}); !errors.Is(err, ErrParentKindMismatch) {
			t.Errorf("expected ErrParentKindMismatch, got %v", err)
		}
	})

	t.Run("no nesting below one level", func(t *testing.T) {
		c := core.Category{ID: "c-bad", Name: "X", Kind: core.Expense, ParentID: parent("child"), Active: true}
		if _, err := repo.BulkUpsert(ctx, []core.Category{c}); !errors.Is(err, ErrNestedParent) {
			t.Errorf("expected ErrNestedParent, got %v", err)
		}
	})

	t.Run("parent resolved within batch", func(t *testing.T) {
		batch := []core.Category{
			{ID: "b-child", Name: "Child", Kind: core.Income, ParentID: parent("b-root"), Active: true},
			{ID: "b-root", Name: "Root", Kind: core.Income, Active: true},
		}
		if _, err := repo.BulkUpsert(ctx, batch); err != nil {
			t.Fatalf("batch-internal parent should resolve regardless of order: %v", err)
		}
	})
}

func TestCategoryListFilters(t *testing.T) {
	s := newTestStore(t)
	repo := NewCategoryRepo(s)
	ctx := context.Background()

	if _, err := repo.BulkUpsert(ctx, []core.Category{
		{ID: "c1", Name: "Food", Kind: core.Expense, Active: true},
		{ID: "c2", Name: "Salary", Kind: core.Income, Active: true},
		{ID: "c3", Name: "Old", Kind: core.Expense, Active: false},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	expenses, err := repo.List(ctx, CategoryFilter{Kind: core.Expense})
	if err != nil {
		t.Fatalf("list by kind: %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("expected 2 expense categories, got %d", len(expenses))
	}

	active, err := repo.List(ctx, CategoryFilter{Kind: core.Expense, ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "c1" {
		t.Errorf("expected only c1 active, got %+v", active)
	}
}

func TestCategoryDelete(t *testing.T) {
	s := newTestStore(t)
	categories := NewCategoryRepo(s)
	transactions := NewTransactionRepo(s)
	budgets := NewBudgetRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "used-tx", "Food", core.Expense)
	seedCategory(t, s, "used-budget", "Rent", core.Expense)
	seedCategory(t, s, "used-parent", "Household", core.Expense)
	seedCategory(t, s, "free", "Misc", core.Expense)

	if err := transactions.Create(ctx, core.Transaction{
		ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -100, CategoryID: "used-tx",
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	if err := budgets.Create(ctx, core.Budget{Month: "2024-01", CategoryID: "used-budget", BudgetCents: 100}); err != nil {
		t.Fatalf("seed budget: %v", err)
	}
	parentID := "used-parent"
	if err := categories.Create(ctx, core.Category{
		ID: "child", Name: "Cleaning", Kind: core.Expense, ParentID: &parentID, Active: true,
	}); err != nil {
		t.Fatalf("seed child: %v", err)
	}

	for _, id := range []string{"used-tx", "used-budget", "used-parent"} {
		if err := categories.Delete(ctx, id); !errors.Is(err, ErrCategoryInUse) {
			t.Errorf("delete %s: expected ErrCategoryInUse, got %v", id, err)
		}
	}

	if err := categories.Delete(ctx, "free"); err != nil {
		t.Errorf("unreferenced category should delete: %v", err)
	}
	if err := categories.Delete(ctx, "free"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should return ErrNotFound, got %v", err)
	}
}
