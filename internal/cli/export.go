package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
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

	var out io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return c.executeWithStore(store, out)
}

// executeWithStore writes every record to out, one JSON object per line.
func (c *ExportCommand) executeWithStore(store storage.Store, out io.Writer) error {
	records, err := store.GetAll(context.Background())
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	enc := json.NewEncoder(out)
	for _, n := range records {
		if err := enc.Encode(toJSONRecord(n)); err != nil {
			return fmt.Errorf("encode record %d: %w", n.ID, err)
		}
	}

	if c.Output != "" {
		recordWord := "records"
		if len(records) == 1 {
			recordWord = "record"
		}
		fmt.Printf("Exported %d %s to %s\n", len(records), recordWord, c.Output)
	}
	return nil
}
