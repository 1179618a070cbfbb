package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/paging"
	"github.com/runnerr0/notifylog/internal/storage"
)

// Execute implements the go-flags Commander interface for BrowseCommand.
func (c *BrowseCommand) Execute(args []string) error {
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

	pcfg := paging.Config{
		PageSize:         cfg.Paging.PageSize,
		PrefetchDistance: cfg.Paging.PrefetchDistance,
		SearchDebounce:   time.Duration(cfg.Paging.SearchDebounceMS) * time.Millisecond,
	}
	if c.PageSize > 0 {
		pcfg.PageSize = c.PageSize
	}

	return c.run(store, pcfg, os.Stdin, os.Stdout)
}

// run drives the pager from a line-oriented input stream: an empty line
// loads the next page, "/text" sets the search filter, ":pkg" the package
// filter, "c" clears filters, "r" re-fetches the head page (records written
// by a concurrently running listener become visible), "q" quits.
func (c *BrowseCommand) run(store storage.Store, pcfg paging.Config, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pager := paging.New(ctx, store, pcfg, logging.Nop())
	defer func() {
		cancel()
		pager.Close()
	}()

	snap := awaitSnapshot(pager, func(s paging.Snapshot) bool {
		return s.State == paging.StateReady
	})
	printPage(out, snap, 0)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "q":
			return nil
		case line == "c":
			pager.ClearFilters()
			snap = awaitSnapshot(pager, func(s paging.Snapshot) bool {
				return s.State == paging.StateReady && s.Filter.IsZero()
			})
			printPage(out, snap, 0)
		case line == "r":
			before := snap
			pager.NotifyInserted()
			snap = awaitSnapshot(pager, func(s paging.Snapshot) bool {
				return s.State == paging.StateReady && !sameHead(s, before)
			})
			printPage(out, snap, 0)
		case strings.HasPrefix(line, "/"):
			q := strings.TrimPrefix(line, "/")
			pager.SetSearchText(q)
			snap = awaitSnapshot(pager, func(s paging.Snapshot) bool {
				return s.State == paging.StateReady && s.Filter.SearchText == q
			})
			printPage(out, snap, 0)
		case strings.HasPrefix(line, ":"):
			pkg := strings.TrimPrefix(line, ":")
			pager.SetPackage(pkg)
			snap = awaitSnapshot(pager, func(s paging.Snapshot) bool {
				return s.State == paging.StateReady && s.Filter.Package == pkg
			})
			printPage(out, snap, 0)
		case line == "":
			if snap.EndReached {
				fmt.Fprintln(out, "(end of log)")
				continue
			}
			from := len(snap.Records)
			pager.LoadMore()
			snap = awaitSnapshot(pager, func(s paging.Snapshot) bool {
				return s.State == paging.StateReady && (len(s.Records) != from || s.EndReached)
			})
			printPage(out, snap, from)
		default:
			fmt.Fprintln(out, "commands: Enter = more, /text = search, :pkg = filter package, c = clear, r = refresh, q = quit")
		}
	}
}

// sameHead reports whether two snapshots show the same head of the log.
func sameHead(a, b paging.Snapshot) bool {
	if len(a.Records) != len(b.Records) {
		return false
	}
	if len(a.Records) == 0 {
		return true
	}
	return a.Records[0].ID == b.Records[0].ID
}

// awaitSnapshot polls until cond holds or a timeout elapses, returning the
// last snapshot either way.
func awaitSnapshot(p *paging.Pager, cond func(paging.Snapshot) bool) paging.Snapshot {
	deadline := time.Now().Add(5 * time.Second)
	snap := p.Snapshot()
	for !cond(snap) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		snap = p.Snapshot()
	}
	return snap
}

// printPage writes the records starting at index from.
func printPage(out io.Writer, snap paging.Snapshot, from int) {
	if snap.Err != nil {
		fmt.Fprintf(out, "query failed: %v\n", snap.Err)
		return
	}
	if len(snap.Records) == 0 {
		fmt.Fprintln(out, "(no notifications)")
		return
	}

	for i := from; i < len(snap.Records); i++ {
		n := snap.Records[i]
		label := n.AppName
		if label == "" {
			label = n.PackageName
		}
		line := fmt.Sprintf("%4d. [%d] %s", i+1, n.ID, label)
		if n.Title != "" {
			line += " — " + n.Title
		}
		fmt.Fprintln(out, line)
		fmt.Fprintf(out, "      %s\n", formatMillis(n.ReceivedTime))
	}
	if snap.EndReached {
		fmt.Fprintln(out, "(end of log)")
	}
}
