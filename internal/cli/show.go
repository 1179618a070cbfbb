package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if c.ID == 0 {
		return fmt.Errorf("--id is required for show command")
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

// executeWithStore runs show against a provided store (for testing).
func (c *ShowCommand) executeWithStore(store storage.Store) error {
	n, err := store.GetByID(context.Background(), c.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no record with id %d", c.ID)
		}
		return fmt.Errorf("load record: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSONRecord(*n))
	}

	fmt.Printf("ID:        %d\n", n.ID)
	fmt.Printf("Package:   %s\n", n.PackageName)
	if n.AppName != "" {
		fmt.Printf("App:       %s\n", n.AppName)
	}
	if n.Title != "" {
		fmt.Printf("Title:     %s\n", n.Title)
	}
	if n.Content != "" {
		fmt.Printf("Content:   %s\n", n.Content)
	}
	fmt.Printf("Posted:    %s\n", formatMillis(n.PostedTime))
	fmt.Printf("Received:  %s\n", formatMillis(n.ReceivedTime))
	if n.IsCleared {
		fmt.Println("Cleared:   yes")
	}

	return nil
}
