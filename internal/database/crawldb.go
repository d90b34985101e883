package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/crawlgraph/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "crawlgraph.db"

var (
	// ErrCrawlNotFound is returned when no crawl has the requested id.
	ErrCrawlNotFound = errors.New("crawl not found")

	// ErrDatabaseNotFound is returned by Open when the file is missing and
	// CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)

// CrawlDB is the SQLite crawl store: crawl metadata plus the append-only
// log of link relationships each crawl produced.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the crawl store in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; concurrent crawls serialize here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		events_emitted INTEGER NOT NULL DEFAULT 0,
		timed_out INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_started ON crawls(started_at);

	-- One row per parent/child pair; a page without links stores one row
	-- with a NULL child so that the page itself is replayed.
	CREATE TABLE IF NOT EXISTS link_relationships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id TEXT NOT NULL,
		event_seq INTEGER NOT NULL,
		parent_url TEXT NOT NULL,
		child_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rel_crawl ON link_relationships(crawl_id, event_seq);
	CREATE INDEX IF NOT EXISTS idx_rel_parent ON link_relationships(crawl_id, parent_url);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// CreateCrawl registers a new crawl. The id must be unique.
func (cdb *CrawlDB) CreateCrawl(ctx context.Context, c *model.Crawl) error {
	steps, err := json.Marshal(c.PerformedSteps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}
	_, err = cdb.db.ExecContext(ctx, `
	INSERT INTO crawls (id, seed, started_at, steps) VALUES (?, ?, ?, ?)`,
		c.ID, c.Seed, formatTimestamp(c.StartedAt), string(steps))
	if err != nil {
		return fmt.Errorf("failed to create crawl %s: %w", c.ID, err)
	}
	return nil
}

// FinishCrawl stores the final state of a crawl registered with CreateCrawl.
func (cdb *CrawlDB) FinishCrawl(ctx context.Context, c *model.Crawl) error {
	steps, err := json.Marshal(c.PerformedSteps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}
	finished := c.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := cdb.db.ExecContext(ctx, `
	UPDATE crawls SET finished_at = ?, pages_crawled = ?, events_emitted = ?,
		timed_out = ?, error = ?, steps = ?
	WHERE id = ?`,
		formatTimestamp(finished), c.PagesCrawled, c.EventsEmitted,
		c.TimedOut, c.Error, string(steps), c.ID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCrawlNotFound, c.ID)
	}
	return nil
}

const crawlColumns = `id, seed, started_at, finished_at, pages_crawled, events_emitted, timed_out, error, steps`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*model.Crawl, error) {
	var (
		c                 model.Crawl
		started, finished string
		steps             string
	)
	if err := row.Scan(&c.ID, &c.Seed, &started, &finished, &c.PagesCrawled,
		&c.EventsEmitted, &c.TimedOut, &c.Error, &steps); err != nil {
		return nil, err
	}
	c.StartedAt = parseTimestamp(started)
	c.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(steps), &c.PerformedSteps); err != nil {
		return nil, fmt.Errorf("failed to parse steps of crawl %s: %w", c.ID, err)
	}
	return &c, nil
}

// GetCrawl returns the crawl with id.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id string) (*model.Crawl, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+crawlColumns+` FROM crawls WHERE id = ?`, id)
	c, err := scanCrawl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCrawlNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl %s: %w", id, err)
	}
	return c, nil
}

// ListCrawls returns all crawls, newest first.
func (cdb *CrawlDB) ListCrawls(ctx context.Context) ([]*model.Crawl, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT `+crawlColumns+` FROM crawls ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	crawls := make([]*model.Crawl, 0)
	for rows.Next() {
		c, err := scanCrawl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		crawls = append(crawls, c)
	}
	return crawls, rows.Err()
}

// SaveEvent appends one crawl event to the relationship log.
func (cdb *CrawlDB) SaveEvent(ctx context.Context, ev model.CrawlEvent) error {
	if !ev.HasParent() {
		return nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(event_seq), 0) + 1 FROM link_relationships WHERE crawl_id = ?`,
		ev.CrawlID).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate event sequence: %w", err)
	}

	const insert = `INSERT INTO link_relationships (crawl_id, event_seq, parent_url, child_url) VALUES (?, ?, ?, ?)`
	if len(ev.ChildURLs) == 0 {
		if _, err := tx.ExecContext(ctx, insert, ev.CrawlID, seq, ev.ParentURL, nil); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}
	for _, child := range ev.ChildURLs {
		if _, err := tx.ExecContext(ctx, insert, ev.CrawlID, seq, ev.ParentURL, child); err != nil {
			return fmt.Errorf("failed to save link relationship: %w", err)
		}
	}
	return tx.Commit()
}

// HasParent reports whether a page was already recorded as a parent for crawlID.
func (cdb *CrawlDB) HasParent(ctx context.Context, crawlID, parentURL string) (bool, error) {
	var n int
	err := cdb.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM link_relationships WHERE crawl_id = ? AND parent_url = ?`,
		crawlID, parentURL).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query parent: %w", err)
	}
	return n > 0, nil
}

// Events replays the events of crawlID in the order they were saved.
func (cdb *CrawlDB) Events(ctx context.Context, crawlID string) ([]model.CrawlEvent, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT event_seq, parent_url, child_url FROM link_relationships
	WHERE crawl_id = ? ORDER BY event_seq, id`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]model.CrawlEvent, 0)
	lastSeq := int64(-1)
	for rows.Next() {
		var (
			seq    int64
			parent string
			child  sql.NullString
		)
		if err := rows.Scan(&seq, &parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		if seq != lastSeq {
			events = append(events, model.CrawlEvent{CrawlID: crawlID, ParentURL: parent, ChildURLs: make([]string, 0)})
			lastSeq = seq
		}
		if child.Valid {
			last := &events[len(events)-1]
			last.ChildURLs = append(last.ChildURLs, child.String)
		}
	}
	return events, rows.Err()
}

// LinkRelationship is one parent/child pair of a crawl.
type LinkRelationship struct {
	CrawlID   string `json:"CrawlID"`
	ParentURL string `json:"ParentURL"`
	ChildURL  string `json:"ChildURL"`
}

// Relationships returns every parent/child pair of crawlID, duplicates included.
func (cdb *CrawlDB) Relationships(ctx context.Context, crawlID string) ([]LinkRelationship, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT parent_url, child_url FROM link_relationships
	WHERE crawl_id = ? AND child_url IS NOT NULL ORDER BY event_seq, id`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]LinkRelationship, 0)
	for rows.Next() {
		rel := LinkRelationship{CrawlID: crawlID}
		if err := rows.Scan(&rel.ParentURL, &rel.ChildURL); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// DeleteCrawl removes a crawl and its relationships.
func (cdb *CrawlDB) DeleteCrawl(ctx context.Context, id string) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM link_relationships WHERE crawl_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM crawls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete crawl: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCrawlNotFound, id)
	}
	return tx.Commit()
}

// storedTimeFormat has a fixed width so that stored values sort chronologically.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeFormat)
}

// parseTimestamp returns the zero time for an empty or unrecognised value.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
