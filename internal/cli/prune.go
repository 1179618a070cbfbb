package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	cfg, err := resolveConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	days := c.Days
	if days == 0 {
		pm, err := openPrefs(cfg, logging.Nop())
		if err != nil {
			return err
		}
		days = pm.Get().AutoDeleteDays
	}

	return c.executeWithStore(store, days)
}

// executeWithStore runs the sweep against a provided store (for testing).
func (c *PruneCommand) executeWithStore(store storage.Store, days int) error {
	if days <= 0 {
		if c.globals != nil && c.globals.JSON {
			out := map[string]interface{}{"deleted": 0, "disabled": true}
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(out)
		}
		fmt.Println("Auto-delete is disabled; nothing to prune.")
		fmt.Println("Use --days to prune with an explicit horizon.")
		return nil
	}

	ctx := context.Background()
	cutoff := time.Now().UnixMilli() - int64(days)*millisPerDay

	if c.DryRun {
		n, err := store.CountOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("count prunable records: %w", err)
		}
		if c.globals != nil && c.globals.JSON {
			out := map[string]interface{}{"would_delete": n, "days": days, "dry_run": true}
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(out)
		}
		fmt.Printf("Would delete %s records older than %d days (dry run)\n", formatNumber(n), days)
		return nil
	}

	deleted, err := store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{"deleted": deleted, "days": days}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Printf("Deleted %s records older than %d days\n", formatNumber(deleted), days)
	return nil
}
