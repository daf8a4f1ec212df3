package storage

import (
	"context"
	"errors"
	"testing"

	"moneta/internal/core"
)

func TestTransactionBulkUpsert(t *testing.T) {
	s := newTestStore(t)
	repo := NewTransactionRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "food", "Food", core.Expense)

	n, err := repo.BulkUpsert(ctx, []core.Transaction{
		{ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -1200, CategoryID: "food", Merchant: "Cafe"},
		{ID: "t2", Date: mustDate(t, "2024-01-06"), AmountCents: -800, CategoryID: "food"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}

	// Re-upserting t1 replaces it, not duplicates it.
	n, err = repo.BulkUpsert(ctx, []core.Transaction{
		{ID: "t1", Date: mustDate(t, "2024-01-07"), AmountCents: -1500, CategoryID: "food", Merchant: "Restaurant"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}

	got, err := repo.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Date.String() != "2024-01-07" || got.AmountCents != -1500 || got.Merchant != "Restaurant" {
		t.Errorf("replace did not take: %+v", got)
	}

	all, err := repo.List(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 rows, got %d", len(all))
	}
}

func TestTransactionUnknownCategoryFailsBatch(t *testing.T) {
	s := newTestStore(t)
	repo := NewTransactionRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "food", "Food", core.Expense)

	batch := []core.Transaction{
		{ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -100, CategoryID: "food"},
		{ID: "t2", Date: mustDate(t, "2024-01-06"), AmountCents: -200, CategoryID: "nope"},
	}
	if _, err := repo.BulkUpsert(ctx, batch); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	all, err := repo.List(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("failed batch must commit nothing, found %d rows", len(all))
	}
}

func TestTransactionListFilters(t *testing.T) {
	s := newTestStore(t)
	repo := NewTransactionRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "food", "Food", core.Expense)
	seedCategory(t, s, "rent", "Rent", core.Expense)

	if _, err := repo.BulkUpsert(ctx, []core.Transaction{
		{ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -100, CategoryID: "food"},
		{ID: "t2", Date: mustDate(t, "2024-01-20"), AmountCents: -90000, CategoryID: "rent"},
		{ID: "t3", Date: mustDate(t, "2024-02-01"), AmountCents: -200, CategoryID: "food"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	january, err := repo.List(ctx, TransactionFilter{Month: "2024-01"})
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(january) != 2 {
		t.Errorf("expected 2 rows in 2024-01, got %d", len(january))
	}

	food, err := repo.List(ctx, TransactionFilter{Month: "2024-01", CategoryID: "food"})
	if err != nil {
		t.Fatalf("list month+category: %v", err)
	}
	if len(food) != 1 || food[0].ID != "t1" {
		t.Errorf("expected only t1, got %+v", food)
	}
}

func TestTransactionDelete(t *testing.T) {
	s := newTestStore(t)
	repo := NewTransactionRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "food", "Food", core.Expense)
	if err := repo.Create(ctx, core.Transaction{
		ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -100, CategoryID: "food",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := repo.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted row should be gone, got %v", err)
	}
	if err := repo.Delete(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting a missing row should return ErrNotFound, got %v", err)
	}
}

func TestMonthOverview(t *testing.T) {
	s := newTestStore(t)
	repo := NewTransactionRepo(s)
	ctx := context.Background()

	seedCategory(t, s, "food", "Food", core.Expense)
	seedCategory(t, s, "salary", "Salary", core.Income)

	if _, err := repo.BulkUpsert(ctx, []core.Transaction{
		{ID: "t1", Date: mustDate(t, "2024-01-05"), AmountCents: -1200, CategoryID: "food"},
		{ID: "t2", Date: mustDate(t, "2024-01-06"), AmountCents: -800, CategoryID: "food"},
		{ID: "t3", Date: mustDate(t, "2024-01-25"), AmountCents: 250000, CategoryID: "salary"},
		{ID: "t4", Date: mustDate(t, "2024-02-01"), AmountCents: -999, CategoryID: "food"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	overview, err := repo.MonthOverview(ctx, "2024-01")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Total.Cents != 248000 {
		t.Errorf("total = %d, want 248000", overview.Total.Cents)
	}
	if len(overview.ByCategory) != 2 {
		t.Fatalf("expected 2 category sums, got %d", len(overview.ByCategory))
	}
	sums := map[string]int64{}
	for _, ca := range overview.ByCategory {
		sums[ca.CategoryID] = ca.Amount.Cents
	}
	if sums["food"] != -2000 || sums["salary"] != 250000 {
		t.Errorf("unexpected sums: %v", sums)
	}

	empty, err := repo.MonthOverview(ctx, "2030-12")
	if err != nil {
		t.Fatalf("empty overview: %v", err)
	}
	if empty.Total.Cents != 0 || len(empty.ByCategory) != 0 {
		t.Errorf("empty month should be all zero, got %+v", empty)
	}
}
