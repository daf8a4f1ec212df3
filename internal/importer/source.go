package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Group names an import source may carry.
const (
	GroupCategories   = "categories"
	GroupTransactions = "transactions"
	GroupBudgets      = "budgets"
)

// Row is one loosely-typed external record, as a spreadsheet parser or a
// backup reader yields it.
type Row map[string]any

// Source supplies named row groups. A missing group is reported, not fatal.
type Source interface {
	Group(name string) ([]Row, bool)
}

// MapSource is the simplest Source: groups held in memory.
type MapSource map[string][]Row

// Ensure interface conformance
var _ Source = (MapSource)(nil)

func (m MapSource) Group(name string) ([]Row, bool) {
	rows, ok := m[name]
	return rows, ok
}

// NewJSONFileSource reads a backup snapshot file into row groups, so
// restore-from-backup runs through the same pipeline as a spreadsheet
// import.
func NewJSONFileSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup file: %w", err)
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse backup file: %w", err)
	}

	src := MapSource{}
	for _, name := range []string{GroupCategories, GroupTransactions, GroupBudgets} {
		raw, ok := groups[name]
		if !ok {
			continue
		}
		var rows []Row
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("parse %s group: %w", name, err)
		}
		src[name] = rows
	}
	return src, nil
}

// stringField reads a trimmed string field, "" when absent.
func stringField(r Row, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// centsField coerces an integer-cents field that may arrive as a number or
// a string.
func centsField(r Row, key string) (int64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("field %q is not an integer amount: %v", key, n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not an integer amount: %q", key, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("field %q has unsupported type %T", key, v)
	}
}

// boolField coerces a flag that may arrive as bool, number, or string.
// Absent defaults to true: imported records are active unless flagged off.
func boolField(r Row, key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return true
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "false", "0", "no", "":
			return false
		default:
			return true
		}
	default:
		return true
	}
}
