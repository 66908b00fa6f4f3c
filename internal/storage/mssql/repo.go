package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"pagetransform/internal/sink"
	"pagetransform/internal/storage"
)

// Repo stores page documents in SQL Server. Upserts use MERGE with
// HOLDLOCK so concurrent writers of the same path serialize.
type Repo struct {
	db    dbConn
	table string
}

func init() {
	storage.Register("mssql", New)
}

// New opens a "sqlserver" connection and validates it with a ping.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(16)
	raw.SetMaxIdleConns(16)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: &sqlDB{db: raw}, table: cfg.TableName()}, nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, buildCreateSQL(r.table)); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, path string) (sink.Document, error) {
	q := fmt.Sprintf(`SELECT page, properties, published, updated_at FROM %s WHERE path = @p1`, mssqlTableIdent(r.table))

	row := storage.Row{Path: path}
	var updated time.Time
	err := r.db.QueryRowContext(ctx, q, path).Scan(&row.Page, &row.Properties, &row.Published, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return sink.Document{}, sink.ErrNotFound
	}
	if err != nil {
		return sink.Document{}, err
	}
	doc, err := storage.DecodeRow(row)
	if err != nil {
		return sink.Document{}, err
	}
	doc.UpdatedAt = updated.UTC()
	return doc, nil
}

func (r *Repo) Put(ctx context.Context, doc sink.Document) error {
	row, err := storage.EncodeRow(doc)
	if err != nil {
		return err
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, buildMergeSQL(r.table), row.Path, row.Page, row.Properties, row.Published, updated)
	return err
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent bracket-quotes each part of a schema-qualified name:
// "dbo.pages" -> [dbo].[pages].
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// buildCreateSQL guards CREATE TABLE with OBJECT_ID, since SQL Server has
// no IF NOT EXISTS for tables.
func buildCreateSQL(table string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s ("+
			"path NVARCHAR(400) NOT NULL PRIMARY KEY, "+
			"page NVARCHAR(MAX) NOT NULL, "+
			"properties NVARCHAR(MAX) NOT NULL, "+
			"published BIT NOT NULL DEFAULT 0, "+
			"updated_at DATETIME2 NOT NULL); END;",
		strings.ReplaceAll(table, "'", "''"),
		mssqlTableIdent(table),
	)
}

func buildMergeSQL(table string) string {
	return fmt.Sprintf(`MERGE %s WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS path, @p2 AS page, @p3 AS properties, @p4 AS published, @p5 AS updated_at) AS s
ON t.path = s.path
WHEN MATCHED THEN UPDATE SET page = s.page, properties = s.properties, published = s.published, updated_at = s.updated_at
WHEN NOT MATCHED THEN INSERT (path, page, properties, published, updated_at)
VALUES (s.path, s.page, s.properties, s.published, s.updated_at);`, mssqlTableIdent(table))
}

// dbConn is the part of *sql.DB the repo uses.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	Close() error
}

// rowScanner is a narrow adapter over *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *sqlDB) Close() error { return s.db.Close() }
