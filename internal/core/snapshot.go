package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the whole-data-set wire format. It is both the payload pushed
// to the remote blob store and the on-disk backup format, so a backup file
// can be restored through the same import path a remote pull uses.
type Snapshot struct {
	SchemaVersion int               `json:"schema_version"`
	ExportedAt    time.Time         `json:"exported_at"`
	Categories    []SnapCategory    `json:"categories"`
	Transactions  []SnapTransaction `json:"transactions"`
	Budgets       []SnapBudget      `json:"budgets"`
}

type SnapCategory struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	ParentID *string `json:"parent_id,omitempty"`
	Active   bool    `json:"active"`
}

type SnapTransaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	CategoryID  string `json:"category_id"`
	Merchant    string `json:"merchant,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type SnapBudget struct {
	Month       string `json:"month"`
	CategoryID  string `json:"category_id"`
	BudgetCents int64  `json:"budget_cents"`
}

func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// ToCategory converts the wire record into the domain shape.
func (c SnapCategory) ToCategory() Category {
	return Category{ID: c.ID, Name: c.Name, Kind: CategoryKind(c.Kind), ParentID: c.ParentID, Active: c.Active}
}

func (t SnapTransaction) ToTransaction() (Transaction, error) {
	d, err := ParseDate(t.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return Transaction{
		ID:          t.ID,
		Date:        d,
		AmountCents: t.AmountCents,
		CategoryID:  t.CategoryID,
		Merchant:    t.Merchant,
		Notes:       t.Notes,
	}, nil
}

func (b SnapBudget) ToBudget() Budget {
	return Budget{Month: b.Month, CategoryID: b.CategoryID, BudgetCents: b.BudgetCents}
}

func FromCategory(c Category) SnapCategory {
	return SnapCategory{ID: c.ID, Name: c.Name, Kind: c.Kind.String(), ParentID: c.ParentID, Active: c.Active}
}

func FromTransaction(t Transaction) SnapTransaction {
	return SnapTransaction{
		ID:          t.ID,
		Date:        t.Date.String(),
		AmountCents: t.AmountCents,
		CategoryID:  t.CategoryID,
		Merchant:    t.Merchant,
		Notes:       t.Notes,
	}
}

func FromBudget(b Budget) SnapBudget {
	return SnapBudget{Month: b.Month, CategoryID: b.CategoryID, BudgetCents: b.BudgetCents}
}
