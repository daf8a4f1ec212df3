package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  CategoryKind = "income"
	Expense CategoryKind = "expense"

	// OverallBudget is the sentinel category id for a budget that applies to
	// the whole month rather than a single category.
	OverallBudget = "overall"
)

type (
	CategoryKind string

	// Date is a calendar day with no time component.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID       string
		Name     string
		Kind     CategoryKind
		ParentID *string
		Active   bool
	}

	Transaction struct {
		ID          string
		Date        Date
		AmountCents int64
		CategoryID  string
		Merchant    string
		Notes       string
	}

	Budget struct {
		Month       string // "YYYY-MM"
		CategoryID  string // OverallBudget for a month-wide budget
		BudgetCents int64
	}

	CategoryAmount struct {
		CategoryID string
		Amount     Money
	}

	MonthOverview struct {
		Month      string
		Total      Money
		ByCategory []CategoryAmount
	}
)

var (
	ErrEmptyID         = errors.New("empty id")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidKind     = errors.New("invalid category kind")
	ErrSelfParent      = errors.New("category cannot parent itself")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategoryID = errors.New("empty category id")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrNegativeBudget  = errors.New("budget cents cannot be negative")
)

// NewID returns a globally unique identifier for a record. Records created
// offline on different devices must never collide once synced.
func NewID() string {
	return uuid.NewString()
}

func (k CategoryKind) IsValid() bool {
	switch k {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (k CategoryKind) String() string {
	return string(k)
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the "YYYY-MM" key for the day, matching Budget.Month.
func (d Date) Month() string {
	return d.Format("2006-01")
}

// ValidMonth reports whether s is a well-formed "YYYY-MM" month key.
func ValidMonth(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.IsValid() {
		return ErrInvalidKind
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return ErrSelfParent
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategoryID
	}
	return nil
}

func (b Budget) Validate() error {
	if !ValidMonth(b.Month) {
		return ErrInvalidMonth
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategoryID
	}
	if b.BudgetCents < 0 {
		return ErrNegativeBudget
	}
	return nil
}
