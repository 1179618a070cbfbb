package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ListenCommand — run the capture daemon reading events from stdin or a FIFO.
type ListenCommand struct {
	Source   string `long:"source" description:"Path to event stream (default: stdin)"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// SearchCommand — search logged notifications with filters.
type SearchCommand struct {
	Query   string `long:"query" description:"Substring to match in title or content"`
	Package string `long:"package" description:"Filter by package name"`
	Since   string `long:"since" description:"Only records newer than duration (e.g., 7d, 24h)"`
	Until   string `long:"until" description:"Only records older than duration"`
	Limit   int    `long:"limit" description:"Maximum results" default:"50"`
	Offset  int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// ShowCommand — print one notification record in full.
type ShowCommand struct {
	ID int64 `long:"id" description:"Record ID (required)"`

	globals *GlobalFlags
	version string
}

// AppsCommand — list the distinct apps present in the log.
type AppsCommand struct {
	globals *GlobalFlags
	version string
}

// StatusCommand — show database statistics and retention summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// AddCommand — manually log a notification record.
type AddCommand struct {
	Package    string `long:"package" description:"Package name (required)"`
	Title      string `long:"title" description:"Notification title"`
	Content    string `long:"content" description:"Notification content"`
	AppName    string `long:"app" description:"Human-readable app label"`
	PostedTime int64  `long:"posted-time" description:"Posted time in epoch millis (default: now)"`

	globals *GlobalFlags
	version string
}

// DeleteCommand — delete records by id.
type DeleteCommand struct {
	IDs []int64 `long:"id" description:"Record ID to delete (repeatable)"`

	globals *GlobalFlags
	version string
}

// PruneCommand — run a retention sweep immediately.
type PruneCommand struct {
	Days   int  `long:"days" description:"Override the auto-delete horizon in days"`
	DryRun bool `long:"dry-run" description:"Show what would be deleted without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL logged data with safety confirmation.
type PurgeCommand struct {
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// ExportCommand — dump every record as JSON lines.
type ExportCommand struct {
	Output string `long:"output" short:"o" description:"Write to file instead of stdout"`

	globals *GlobalFlags
	version string
}

// SetCommand — read or write preference toggles.
type SetCommand struct {
	globals *GlobalFlags
	version string
}

// BrowseCommand — interactive paged listing of the log.
type BrowseCommand struct {
	PageSize int `long:"page-size" description:"Override the configured page size"`

	globals *GlobalFlags
	version string
}
