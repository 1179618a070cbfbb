package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("notification not found")

// Store defines the interface for notifylog data operations.
type Store interface {
	Insert(ctx context.Context, n *Notification) (int64, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
	GetPage(ctx context.Context, limit, offset int) ([]Notification, error)
	GetFilteredPage(ctx context.Context, f Filter, limit, offset int) ([]Notification, error)
	GetByPackage(ctx context.Context, pkg string, limit, offset int) ([]Notification, error)
	GetAll(ctx context.Context) ([]Notification, error)
	MarkCleared(ctx context.Context, pkg string, postedTime int64) (int64, error)
	DistinctApps(ctx context.Context) ([]AppSummary, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	DeleteAll(ctx context.Context) error
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountOlderThan(ctx context.Context, cutoff int64) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements for the hot paths.
	insertStmt      *sql.Stmt
	getByIDStmt     *sql.Stmt
	markClearedStmt *sql.Stmt
	deleteStmt      *sql.Stmt
	countStmt       *sql.Stmt

	// now supplies received_time at insert; overridable in tests.
	now func() time.Time
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO notifications (package_name, app_name, title, content, posted_time, received_time, is_cleared)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getByIDStmt, err = s.db.Prepare(selectColumns + ` FROM notifications WHERE id = ?`)
	if err != nil {
		return err
	}

	s.markClearedStmt, err = s.db.Prepare(`
		UPDATE notifications SET is_cleared = 1
		WHERE package_name = ? AND posted_time = ?
	`)
	if err != nil {
		return err
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM notifications WHERE id = ?`)
	if err != nil {
		return err
	}

	s.countStmt, err = s.db.Prepare(`SELECT COUNT(*) FROM notifications`)
	if err != nil {
		return err
	}

	return nil
}

const selectColumns = `
	SELECT id, package_name, app_name, title, content, posted_time, received_time, is_cleared
`

// Insert appends a record and returns its assigned id. When ReceivedTime is
// zero it is assigned from the store clock, so insertion order and
// received_time order agree.
func (s *SQLiteStore) Insert(ctx context.Context, n *Notification) (int64, error) {
	if n.ReceivedTime == 0 {
		n.ReceivedTime = s.now().UnixMilli()
	}

	res, err := s.insertStmt.ExecContext(ctx,
		n.PackageName, nullStr(n.AppName), nullStr(n.Title), nullStr(n.Content),
		n.PostedTime, n.ReceivedTime, n.IsCleared,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id

	return id, nil
}

// GetByID retrieves a single record, or ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(s.getByIDStmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification %d: %w", id, err)
	}
	return n, nil
}

// GetPage returns one page of the full history, newest first. Ordering is
// received_time descending with id descending as the tiebreak, which keeps
// pages stable for a fixed database state.
func (s *SQLiteStore) GetPage(ctx context.Context, limit, offset int) ([]Notification, error) {
	query := selectColumns + `
		FROM notifications
		ORDER BY received_time DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return s.scanNotifications(ctx, query, limit, offset)
}

// GetFilteredPage returns one page matching every non-zero predicate of f.
// Search text matches as a case-insensitive substring of title OR content;
// empty search text matches everything.
func (s *SQLiteStore) GetFilteredPage(ctx context.Context, f Filter, limit, offset int) ([]Notification, error) {
	var clauses []string
	var args []interface{}

	if f.SearchText != "" {
		pattern := "%" + escapeLike(f.SearchText) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Package != "" {
		clauses = append(clauses, "package_name = ?")
		args = append(args, f.Package)
	}
	if f.StartDate != 0 {
		clauses = append(clauses, "received_time >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != 0 {
		clauses = append(clauses, "received_time <= ?")
		args = append(args, f.EndDate)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := selectColumns + ` FROM notifications` + where + `
		ORDER BY received_time DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	return s.scanNotifications(ctx, query, args...)
}

// GetByPackage returns one page of records from a single package.
func (s *SQLiteStore) GetByPackage(ctx context.Context, pkg string, limit, offset int) ([]Notification, error) {
	query := selectColumns + `
		FROM notifications
		WHERE package_name = ?
		ORDER BY received_time DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return s.scanNotifications(ctx, query, pkg, limit, offset)
}

// GetAll returns the full unpaged record set, newest first. Used by the
// export facility; everything interactive goes through the paged accessors.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]Notification, error) {
	query := selectColumns + `
		FROM notifications
		ORDER BY received_time DESC, id DESC
	`
	return s.scanNotifications(ctx, query)
}

// MarkCleared sets is_cleared on every row matching (package, postedTime)
// and returns the number of rows updated. (package, posted_time) is not
// unique, so this deliberately touches all matches; zero matches is not an
// error.
func (s *SQLiteStore) MarkCleared(ctx context.Context, pkg string, postedTime int64) (int64, error) {
	res, err := s.markClearedStmt.ExecContext(ctx, pkg, postedTime)
	if err != nil {
		return 0, fmt.Errorf("mark cleared: %w", err)
	}
	return res.RowsAffected()
}

// DistinctApps returns one row per distinct package. When app_name varies
// across rows of one package, the most recently received label wins.
func (s *SQLiteStore) DistinctApps(ctx context.Context) ([]AppSummary, error) {
	// The bare app_name column is taken from the MAX(received_time) row,
	// per SQLite's bare-column-in-aggregate rule.
	rows, err := s.db.QueryContext(ctx, `
		SELECT package_name, app_name, MAX(received_time)
		FROM notifications
		GROUP BY package_name
		ORDER BY app_name COLLATE NOCASE, package_name
	`)
	if err != nil {
		return nil, fmt.Errorf("distinct apps: %w", err)
	}
	defer rows.Close()

	apps := []AppSummary{}
	for rows.Next() {
		var a AppSummary
		var appName sql.NullString
		var lastSeen int64
		if err := rows.Scan(&a.PackageName, &appName, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan app summary: %w", err)
		}
		a.AppName = appName.String
		apps = append(apps, a)
	}

	return apps, rows.Err()
}

// Delete removes a single record, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteMany removes a batch of records by id and returns how many existed.
// Missing ids are skipped, not errors.
func (s *SQLiteStore) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll removes every record.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// DeleteOlderThan removes records with received_time before cutoff (epoch
// millis) and returns the number deleted.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE received_time < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete older than %d: %w", cutoff, err)
	}
	return res.RowsAffected()
}

// CountOlderThan returns how many records DeleteOlderThan would remove.
func (s *SQLiteStore) CountOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE received_time < ?", cutoff,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count older than %d: %w", cutoff, err)
	}
	return n, nil
}

// Count returns the total record count.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// Stats returns aggregate statistics about the database.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_cleared), 0) FROM notifications",
	).Scan(&stats.TotalRecords, &stats.ClearedRecords)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	if stats.TotalRecords > 0 {
		err = s.db.QueryRowContext(ctx,
			"SELECT MIN(received_time), MAX(received_time) FROM notifications",
		).Scan(&stats.OldestReceived, &stats.NewestReceived)
		if err != nil {
			return nil, fmt.Errorf("received time range: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT package_name, app_name, COUNT(*) as cnt
		FROM notifications
		GROUP BY package_name
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top packages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pc PackageCount
		var appName sql.NullString
		if err := rows.Scan(&pc.PackageName, &appName, &pc.Count); err != nil {
			return nil, err
		}
		pc.AppName = appName.String
		stats.TopPackages = append(stats.TopPackages, pc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertStmt, s.getByIDStmt, s.markClearedStmt,
		s.deleteStmt, s.countStmt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

// scanNotifications executes a query and scans results into a slice.
func (s *SQLiteStore) scanNotifications(ctx context.Context, query string, args ...interface{}) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	// Return empty slice rather than nil.
	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		var appName, title, content sql.NullString
		if err := rows.Scan(
			&n.ID, &n.PackageName, &appName, &title, &content,
			&n.PostedTime, &n.ReceivedTime, &n.IsCleared,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.AppName = appName.String
		n.Title = title.String
		n.Content = content.String
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	var appName, title, content sql.NullString
	if err := row.Scan(
		&n.ID, &n.PackageName, &appName, &title, &content,
		&n.PostedTime, &n.ReceivedTime, &n.IsCleared,
	); err != nil {
		return nil, err
	}
	n.AppName = appName.String
	n.Title = title.String
	n.Content = content.String
	return &n, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// nullStr maps empty strings to NULL so unresolved labels and blank fields
// stay distinguishable from empty text.
func nullStr(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
