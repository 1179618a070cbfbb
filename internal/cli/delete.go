package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
func (c *DeleteCommand) Execute(args []string) error {
	if len(c.IDs) == 0 {
		return fmt.Errorf("at least one --id is required for delete command")
	}

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

	return c.executeWithStore(store)
}

// executeWithStore runs delete against a provided store (for testing).
func (c *DeleteCommand) executeWithStore(store storage.Store) error {
	ctx := context.Background()

	var deleted int64
	if len(c.IDs) == 1 {
		err := store.Delete(ctx, c.IDs[0])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no record with id %d", c.IDs[0])
			}
			return fmt.Errorf("delete record: %w", err)
		}
		deleted = 1
	} else {
		var err error
		deleted, err = store.DeleteMany(ctx, c.IDs)
		if err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"deleted":   deleted,
			"requested": len(c.IDs),
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	recordWord := "records"
	if deleted == 1 {
		recordWord = "record"
	}
	fmt.Printf("Deleted %d %s\n", deleted, recordWord)
	return nil
}
