package storage

// Notification is one captured notification record.
type Notification struct {
	ID           int64
	PackageName  string
	AppName      string // empty when the label could not be resolved
	Title        string
	Content      string
	PostedTime   int64 // epoch millis reported by the event source
	ReceivedTime int64 // epoch millis at capture; primary sort key
	IsCleared    bool
}

// AppSummary is one distinct (package, label) pair present in the store.
// Derived on query; never stored.
type AppSummary struct {
	PackageName string
	AppName     string
}

// Filter defines the conjunctive predicates for a filtered page query.
// Zero-valued fields match everything.
type Filter struct {
	SearchText string // case-insensitive substring over title OR content
	Package    string
	StartDate  int64 // inclusive received_time lower bound, epoch millis
	EndDate    int64 // inclusive received_time upper bound, epoch millis
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	return f.SearchText == "" && f.Package == "" && f.StartDate == 0 && f.EndDate == 0
}

// Stats holds aggregate statistics about the notification database.
type Stats struct {
	TotalRecords   int64
	ClearedRecords int64
	OldestReceived int64 // epoch millis, zero when empty
	NewestReceived int64
	TopPackages    []PackageCount
}

// PackageCount pairs a package with its record count.
type PackageCount struct {
	PackageName string
	AppName     string
	Count       int64
}
