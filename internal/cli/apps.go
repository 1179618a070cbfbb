package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for AppsCommand.
func (c *AppsCommand) Execute(args []string) error {
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

// executeWithStore runs apps against a provided store (for testing).
func (c *AppsCommand) executeWithStore(store storage.Store) error {
	apps, err := store.DistinctApps(context.Background())
	if err != nil {
		return fmt.Errorf("list apps: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		type appJSON struct {
			Package string `json:"package"`
			AppName string `json:"app_name,omitempty"`
		}
		out := make([]appJSON, len(apps))
		for i, a := range apps {
			out[i] = appJSON{Package: a.PackageName, AppName: a.AppName}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(apps) == 0 {
		fmt.Println("No apps have logged notifications yet.")
		return nil
	}

	for _, a := range apps {
		if a.AppName != "" {
			fmt.Printf("%-40s %s\n", a.PackageName, a.AppName)
		} else {
			fmt.Println(a.PackageName)
		}
	}

	return nil
}
