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

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
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

	return c.executeWithStore(store, args)
}

// executeWithStore runs the search against a provided store (for testing).
func (c *SearchCommand) executeWithStore(store storage.Store, args []string) error {
	query := c.Query
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}

	f := storage.Filter{
		SearchText: query,
		Package:    c.Package,
	}

	now := time.Now()
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		f.StartDate = now.Add(-dur).UnixMilli()
	}
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		f.EndDate = now.Add(-dur).UnixMilli()
	}

	ctx := context.Background()
	var results []storage.Notification
	var err error
	if f.IsZero() {
		results, err = store.GetPage(ctx, c.Limit, c.Offset)
	} else {
		results, err = store.GetFilteredPage(ctx, f, c.Limit, c.Offset)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(query, results)
	}
	return c.printHuman(query, results)
}

func (c *SearchCommand) printHuman(query string, results []storage.Notification) error {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No notifications found for %q\n", query)
		} else {
			fmt.Println("No notifications found")
		}
		return nil
	}

	resultWord := "notifications"
	if len(results) == 1 {
		resultWord = "notification"
	}
	if query != "" {
		fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)
	} else {
		fmt.Printf("Found %d %s\n\n", len(results), resultWord)
	}

	for i, n := range results {
		label := n.AppName
		if label == "" {
			label = n.PackageName
		}
		fmt.Printf("%d. [%d] %s", i+1+c.Offset, n.ID, label)
		if n.Title != "" {
			fmt.Printf(" — %s", n.Title)
		}
		fmt.Println()

		if n.Content != "" {
			fmt.Printf("   %s\n", truncate(n.Content, 120))
		}

		meta := formatMillis(n.ReceivedTime) + " · " + n.PackageName
		if n.IsCleared {
			meta += " · cleared"
		}
		fmt.Printf("   %s\n", meta)

		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonRecord struct {
	ID           int64  `json:"id"`
	Package      string `json:"package"`
	AppName      string `json:"app_name,omitempty"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content,omitempty"`
	PostedTime   int64  `json:"posted_time"`
	ReceivedTime int64  `json:"received_time"`
	IsCleared    bool   `json:"is_cleared"`
}

type jsonSearchOutput struct {
	Count   int          `json:"count"`
	Query   string       `json:"query"`
	Results []jsonRecord `json:"results"`
}

func toJSONRecord(n storage.Notification) jsonRecord {
	return jsonRecord{
		ID:           n.ID,
		Package:      n.PackageName,
		AppName:      n.AppName,
		Title:        n.Title,
		Content:      n.Content,
		PostedTime:   n.PostedTime,
		ReceivedTime: n.ReceivedTime,
		IsCleared:    n.IsCleared,
	}
}

func (c *SearchCommand) printJSON(query string, results []storage.Notification) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]jsonRecord, len(results)),
	}
	for i, n := range results {
		out.Results[i] = toJSONRecord(n)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
