// Package cli implements the notifylog command-line interface.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Listen *ListenCommand
	Search *SearchCommand
	Show   *ShowCommand
	Apps   *AppsCommand
	Status *StatusCommand
	Add    *AddCommand
	Delete *DeleteCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
	Export *ExportCommand
	Set    *SetCommand
	Browse *BrowseCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "notifylog"
	parser.LongDescription = "Privacy-first local notification logging, search, and recall."

	cmds := &commands{
		Listen: &ListenCommand{globals: &globals, version: version},
		Search: &SearchCommand{globals: &globals, version: version},
		Show:   &ShowCommand{globals: &globals, version: version},
		Apps:   &AppsCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Add:    &AddCommand{globals: &globals, version: version},
		Delete: &DeleteCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
		Export: &ExportCommand{globals: &globals, version: version},
		Set:    &SetCommand{globals: &globals, version: version},
		Browse: &BrowseCommand{globals: &globals, version: version},
	}

	parser.AddCommand("listen", "Start the capture daemon", "Start the capture daemon reading notification events from stdin or a FIFO.", cmds.Listen)
	parser.AddCommand("search", "Search logged notifications", "Search logged notifications by substring, with optional filters.", cmds.Search)
	parser.AddCommand("show", "Print one record in full", "Print the full stored content of a specific notification record.", cmds.Show)
	parser.AddCommand("apps", "List apps present in the log", "List the distinct apps that have logged notifications.", cmds.Apps)
	parser.AddCommand("status", "Show database statistics", "Show database statistics, retention summary, and preference state.", cmds.Status)
	parser.AddCommand("add", "Manually log a notification", "Manually log a notification record.", cmds.Add)
	parser.AddCommand("delete", "Delete records by id", "Delete one or more notification records by id.", cmds.Delete)
	parser.AddCommand("prune", "Run a retention sweep now", "Delete records older than the auto-delete horizon immediately.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL logged data", "Delete ALL logged data. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("export", "Dump all records as JSON lines", "Dump every stored record as one JSON object per line.", cmds.Export)
	parser.AddCommand("set", "Read or write preferences", "Read or write preference toggles (logging, system apps, retention days).", cmds.Set)
	parser.AddCommand("browse", "Interactively page through the log", "Interactively page through the log: Enter loads more, /text searches, :pkg filters, q quits.", cmds.Browse)

	return parser, &globals, cmds
}

// Run is the main entry point for the notifylog CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("notifylog %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
