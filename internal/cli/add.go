package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	cfg, err := resolveConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store storage.Store) error {
	if c.Package == "" {
		return fmt.Errorf("--package is required for add command")
	}
	// Same rule capture applies: a record with no text is not worth keeping.
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("at least one of --title or --content is required")
	}

	posted := c.PostedTime
	if posted == 0 {
		posted = time.Now().UnixMilli()
	}

	n := &storage.Notification{
		PackageName: c.Package,
		AppName:     c.AppName,
		Title:       c.Title,
		Content:     c.Content,
		PostedTime:  posted,
	}

	id, err := store.Insert(context.Background(), n)
	if err != nil {
		return fmt.Errorf("storing record: %w", err)
	}
	n.ID = id

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSONRecord(*n))
	}

	fmt.Printf("Logged notification %d (%s)\n", id, formatMillis(n.ReceivedTime))
	fmt.Printf("  Package: %s\n", n.PackageName)
	if n.Title != "" {
		fmt.Printf("  Title: %s\n", n.Title)
	}
	if n.Content != "" {
		fmt.Printf("  Content: %s\n", n.Content)
	}

	return nil
}
