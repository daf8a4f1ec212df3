package main

import (
	"context"
	"fmt"
	"os"

	"moneta/internal/app"
	"moneta/internal/cli"
	"moneta/internal/config"
	"moneta/internal/core"
	"moneta/internal/importer"
	"moneta/internal/importer/sheets"
	"moneta/internal/notify"
)

func main() {
	cfg, logger := cli.Bootstrap("moneta")

	ctx, cancel := cli.SignalContext()
	defer cancel()

	ctrl := cli.Startup(ctx, cfg, logger)
	defer ctrl.Close()

	cmd := "status"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "status":
		err = runStatus(ctx, ctrl)
	case "import":
		err = runImport(ctx, cfg, ctrl, os.Args[2:])
	case "export":
		err = runExport(ctx, ctrl, os.Args[2:])
	case "sync":
		err = ctrl.Sync.Cycle(ctx)
	case "overview":
		err = runOverview(ctx, ctrl, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "usage: moneta [status|import <file>|import sheets|export <file>|sync|overview <month>]\n")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func runStatus(ctx context.Context, ctrl *app.Controller) error {
	status := ctrl.Status()
	state, err := ctrl.SyncStates.Get(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("state:            %s\n", status.State)
	fmt.Printf("sync attached:    %v\n", ctrl.Sync.Attached())
	if status.SyncWarning != "" {
		fmt.Printf("sync warning:     %s\n", status.SyncWarning)
	}
	fmt.Printf("last revision:    %s\n", orNone(state.LastRevision))
	if !state.LastSyncedAt.IsZero() {
		fmt.Printf("last synced:      %s\n", state.LastSyncedAt)
	}
	fmt.Printf("pending changes:  %v\n", state.PendingChanges)
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, ctrl *app.Controller, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("import needs a backup file path or 'sheets'")
	}

	var src importer.Source
	var err error
	if args[0] == "sheets" {
		var client *sheets.Client
		client, err = sheets.New(ctx, cfg.SpreadsheetID)
		if err != nil {
			return err
		}
		src, err = client.Load(ctx)
	} else {
		src, err = importer.NewJSONFileSource(args[0])
	}
	if err != nil {
		return err
	}

	result := ctrl.Importer.Import(ctx, src)
	fmt.Printf("categories:   %d\n", result.CategoriesImported)
	fmt.Printf("transactions: %d\n", result.TransactionsImported)
	fmt.Printf("budgets:      %d\n", result.BudgetsImported)
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}

	notifyChanged(ctx, cfg, result)
	return nil
}

// notifyChanged tells the sync worker rows changed. Best effort: without a
// broker the publisher is a no-op and the worker's timer still picks the
// changes up.
func notifyChanged(ctx context.Context, cfg *config.Config, result importer.ImportResult) {
	total := result.CategoriesImported + result.TransactionsImported + result.BudgetsImported
	if total == 0 {
		return
	}

	pub, closePub, err := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: change notification unavailable: %v\n", err)
		return
	}
	defer closePub()

	if err := pub.PublishChanged(ctx, "import", total); err != nil {
		fmt.Fprintf(os.Stderr, "warning: change notification failed: %v\n", err)
	}
}

func runExport(ctx context.Context, ctrl *app.Controller, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("export needs a target file path")
	}

	snap, err := ctrl.Snapshots.Snapshot(ctx)
	if err != nil {
		return err
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}

	fmt.Printf("exported %d categories, %d transactions, %d budgets to %s\n",
		len(snap.Categories), len(snap.Transactions), len(snap.Budgets), args[0])
	return nil
}

func runOverview(ctx context.Context, ctrl *app.Controller, args []string) error {
	if len(args) < 1 || !core.ValidMonth(args[0]) {
		return fmt.Errorf("overview needs a month as YYYY-MM")
	}
	month := args[0]

	overview, err := ctrl.Transactions.MonthOverview(ctx, month)
	if err != nil {
		return err
	}
	fmt.Printf("%s total: %s\n", month, formatCents(overview.Total.Cents))
	for _, ca := range overview.ByCategory {
		fmt.Printf("  %-36s %s\n", ca.CategoryID, formatCents(ca.Amount.Cents))
	}

	progress, err := ctrl.Budgets.Progress(ctx, month)
	if err != nil {
		return err
	}
	for _, p := range progress {
		fmt.Printf("budget %-29s %s spent of %s\n",
			p.Budget.CategoryID, formatCents(p.SpentCents), formatCents(p.Budget.BudgetCents))
	}
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
