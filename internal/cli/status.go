package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/prefs"
	"github.com/runnerr0/notifylog/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string             `json:"version"`
	DatabasePath      string             `json:"database_path"`
	DatabaseSizeBytes int64              `json:"database_size_bytes"`
	TotalRecords      int64              `json:"total_records"`
	ClearedRecords    int64              `json:"cleared_records"`
	OldestReceived    string             `json:"oldest_received,omitempty"`
	NewestReceived    string             `json:"newest_received,omitempty"`
	LoggingEnabled    bool               `json:"logging_enabled"`
	IgnoreSystemApps  bool               `json:"ignore_system_apps"`
	AutoDeleteDays    int                `json:"auto_delete_days"`
	TopPackages       []packageCountJSON `json:"top_packages"`
}

type packageCountJSON struct {
	Package string `json:"package"`
	AppName string `json:"app_name,omitempty"`
	Count   int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	pm, err := openPrefs(cfg, logging.Nop())
	if err != nil {
		return err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}

	return c.executeWithStore(store, db, dbPath, pm.Get())
}

// executeWithStore runs status against provided dependencies (for testing).
func (c *StatusCommand) executeWithStore(store storage.Store, db *sql.DB, dbPath string, p prefs.Prefs) error {
	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbSize := databaseSize(db, dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(stats, dbPath, dbSize, p)
	}
	return c.printHuman(stats, dbPath, dbSize, p)
}

func (c *StatusCommand) printHuman(stats *storage.Stats, dbPath string, dbSize int64, p prefs.Prefs) error {
	fmt.Println("Notifylog Status")
	fmt.Println("================")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Records:       %s\n", formatNumber(stats.TotalRecords))

	if stats.TotalRecords > 0 {
		pct := float64(stats.ClearedRecords) / float64(stats.TotalRecords) * 100
		fmt.Printf("Cleared:       %s (%.1f%%)\n", formatNumber(stats.ClearedRecords), pct)
		fmt.Printf("Oldest:        %s\n", formatMillis(stats.OldestReceived))
		fmt.Printf("Newest:        %s\n", formatMillis(stats.NewestReceived))
	}

	fmt.Println()
	if p.LoggingEnabled {
		fmt.Println("Logging:       enabled")
	} else {
		fmt.Println("Logging:       paused")
	}
	if p.IgnoreSystemApps {
		fmt.Println("System apps:   ignored")
	} else {
		fmt.Println("System apps:   logged")
	}
	if p.AutoDeleteDays > 0 {
		fmt.Printf("Auto-delete:   after %d days\n", p.AutoDeleteDays)
	} else {
		fmt.Println("Auto-delete:   disabled")
	}

	if len(stats.TopPackages) > 0 {
		fmt.Println()
		fmt.Println("Top Apps:")
		for _, pc := range stats.TopPackages {
			label := pc.AppName
			if label == "" {
				label = pc.PackageName
			}
			fmt.Printf("  %-30s %s\n", label, formatNumber(pc.Count))
		}
	}

	return nil
}

func (c *StatusCommand) printJSON(stats *storage.Stats, dbPath string, dbSize int64, p prefs.Prefs) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalRecords:      stats.TotalRecords,
		ClearedRecords:    stats.ClearedRecords,
		LoggingEnabled:    p.LoggingEnabled,
		IgnoreSystemApps:  p.IgnoreSystemApps,
		AutoDeleteDays:    p.AutoDeleteDays,
		TopPackages:       make([]packageCountJSON, len(stats.TopPackages)),
	}

	if stats.TotalRecords > 0 {
		out.OldestReceived = formatMillis(stats.OldestReceived)
		out.NewestReceived = formatMillis(stats.NewestReceived)
	}
	for i, pc := range stats.TopPackages {
		out.TopPackages[i] = packageCountJSON{
			Package: pc.PackageName,
			AppName: pc.AppName,
			Count:   pc.Count,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// databaseSize returns the database file size in bytes. For on-disk
// databases it uses os.Stat; for in-memory databases it queries
// page_count * page_size.
func databaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
