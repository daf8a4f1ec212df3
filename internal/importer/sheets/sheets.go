// Package sheets reads import row groups from a Google spreadsheet, one tab
// per group, first row holding the field names.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneta/internal/importer"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[string]string // group name -> sheet tab
}

// New creates a spreadsheet-backed import source reader. Tab names default
// to the capitalized group names.
func New(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabs: map[string]string{
			importer.GroupCategories:   "Categories",
			importer.GroupTransactions: "Transactions",
			importer.GroupBudgets:      "Budgets",
		},
	}, nil
}

// Load reads every tab into an importer source. A tab that is missing or
// empty leaves its group absent; the pipeline reports it without aborting
// the others.
func (c *Client) Load(ctx context.Context) (importer.Source, error) {
	src := importer.MapSource{}
	for group, tab := range c.tabs {
		rows, err := c.readTab(ctx, tab)
		if err != nil {
			slog.WarnContext(ctx, "Skipping spreadsheet tab",
				"tab", tab,
				"group", group,
				"error", err)
			continue
		}
		if rows == nil {
			continue
		}
		src[group] = rows
	}
	return src, nil
}

func (c *Client) readTab(ctx context.Context, tab string) ([]importer.Row, error) {
	rng := fmt.Sprintf("%s!A1:Z", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) < 2 {
		// Header only, or nothing at all.
		return nil, nil
	}

	header := toStrings(resp.Values[0])
	out := make([]importer.Row, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		cols := toStrings(raw)
		if blank(cols) {
			continue
		}
		row := importer.Row{}
		for i, name := range header {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || i >= len(cols) {
				continue
			}
			row[name] = cols[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
