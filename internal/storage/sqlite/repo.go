package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pagetransform/internal/sink"
	"pagetransform/internal/storage"
)

// Repo stores page documents in SQLite.
//
// SQLite has no native timestamp type, so updated_at is stored as an
// RFC3339Nano string. The pool is limited to one connection: writes are
// serialized anyway and ":memory:" databases are per connection.
type Repo struct {
	db    *sql.DB
	table string
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, table: cfg.TableName()}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, buildCreateSQL(r.table)); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, path string) (sink.Document, error) {
	q := fmt.Sprintf(`SELECT page, properties, published, updated_at FROM %s WHERE path = ?`, sqlIdent(r.table))

	row := storage.Row{Path: path}
	var published int64
	var updated string
	err := r.db.QueryRowContext(ctx, q, path).Scan(&row.Page, &row.Properties, &published, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return sink.Document{}, sink.ErrNotFound
	}
	if err != nil {
		return sink.Document{}, err
	}
	row.Published = published != 0

	doc, err := storage.DecodeRow(row)
	if err != nil {
		return sink.Document{}, err
	}
	if doc.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return sink.Document{}, fmt.Errorf("sqlite: parse %s.updated_at=%q: %w", r.table, updated, err)
	}
	return doc, nil
}

// Put upserts doc keyed by path.
func (r *Repo) Put(ctx context.Context, doc sink.Document) error {
	row, err := storage.EncodeRow(doc)
	if err != nil {
		return err
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	published := 0
	if row.Published {
		published = 1
	}
	_, err = r.db.ExecContext(ctx, buildUpsertSQL(r.table),
		row.Path, row.Page, row.Properties, published, formatSQLiteTime(updated))
	return err
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func buildCreateSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	path TEXT PRIMARY KEY,
	page TEXT NOT NULL,
	properties TEXT NOT NULL,
	published INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
)`, sqlIdent(table))
}

func buildUpsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (path, page, properties, published, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	page = excluded.page,
	properties = excluded.properties,
	published = excluded.published,
	updated_at = excluded.updated_at`, sqlIdent(table))
}

// formatSQLiteTime formats a time as RFC3339Nano in UTC.
func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseSQLiteTime accepts RFC3339Nano (what we write), RFC3339 and the
// space separated forms other SQLite tools write. A value without zone is
// read as UTC.
func parseSQLiteTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
