// Package archive keeps an optional SQL log of every item posted to Slack.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the archive connection.
type DB struct {
	*sql.DB
	driver string
	now    func() time.Time
}

// Entry is one archived post.
type Entry struct {
	RunID    string
	Feed     string
	ItemID   string
	Title    string
	Link     string
	PostedAt time.Time
}

// Open connects to the archive. driver is "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection URL).
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "", DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres, "pgx":
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Infof("[archive] connected to postgres")
		return &DB{DB: db, driver: DriverPostgres, now: time.Now}, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", driver)
	}
}

func openSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite archive needs a file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	logger.Infof("[archive] opened %s", path)
	return &DB{DB: db, driver: DriverSQLite, now: time.Now}, nil
}

// Driver returns the normalized driver name.
func (db *DB) Driver() string { return db.driver }

// Migrate creates the archive table and indexes.
func (db *DB) Migrate() error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posted_items (
			` + id + `,
			run_id TEXT NOT NULL,
			feed TEXT NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			posted_at TEXT NOT NULL,
			UNIQUE(run_id, feed, item_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posted_items_posted_at ON posted_items(posted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posted_items_feed ON posted_items(feed, item_id)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("archive migration: %w", err)
		}
	}
	return nil
}

// Record stores items posted by runID for feed.
func (db *DB) Record(ctx context.Context, runID, feed string, items []rss.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(
		`INSERT INTO posted_items (run_id, feed, item_id, title, link, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, feed, item_id) DO NOTHING`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	postedAt := db.now().UTC().Format(time.RFC3339)
	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, runID, feed, it.ID, it.Title, it.Link, postedAt); err != nil {
			return fmt.Errorf("insert %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Debugf("[archive] recorded %d %s items for run %s", len(items), feed, runID)
	return nil
}

// Recent returns the newest entries first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, db.rebind(
		`SELECT run_id, feed, item_id, title, link, posted_at
		 FROM posted_items ORDER BY posted_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			postedAt string
		)
		if err := rows.Scan(&e.RunID, &e.Feed, &e.ItemID, &e.Title, &e.Link, &postedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.PostedAt, err = time.Parse(time.RFC3339, postedAt)
		if err != nil {
			return nil, fmt.Errorf("parse posted_at of %s/%s: %w", e.Feed, e.ItemID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders as $1, $2 ... for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
