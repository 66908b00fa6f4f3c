package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pagetransform/internal/sink"
	"pagetransform/internal/storage"
)

// Repo stores page documents in Postgres through a pgx pool.
type Repo struct {
	pool  *pgxpool.Pool
	table string
}

// New creates a pool for cfg.DSN. Connectivity errors surface on first use.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool, table: cfg.TableName()}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureSchema creates the schema (for qualified names) and the table.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	schemaSQL, tableSQL := buildCreateSQL(r.table)
	if schemaSQL != "" {
		if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema for %s: %w", r.table, err)
		}
	}
	if _, err := r.pool.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, path string) (sink.Document, error) {
	q := fmt.Sprintf(`SELECT page, properties, published, updated_at FROM %s WHERE path = $1`, pgTableIdent(r.table))

	row := storage.Row{Path: path}
	var updated time.Time
	err := r.pool.QueryRow(ctx, q, path).Scan(&row.Page, &row.Properties, &row.Published, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
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

// Put upserts doc with INSERT ... ON CONFLICT (path) DO UPDATE.
func (r *Repo) Put(ctx context.Context, doc sink.Document) error {
	row, err := storage.EncodeRow(doc)
	if err != nil {
		return err
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, buildUpsertSQL(r.table), row.Path, row.Page, row.Properties, row.Published, updated)
	return err
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// pgTableIdent quotes a possibly schema-qualified table name.
func pgTableIdent(name string) string {
	schema, table := splitQualifiedName(name)
	if schema == "" {
		return pgIdent(table)
	}
	return pgIdent(schema) + "." + pgIdent(table)
}

// splitQualifiedName splits "schema.table". Anything other than exactly
// one dot is treated as unqualified.
func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func buildCreateSQL(name string) (schemaSQL, tableSQL string) {
	if schema, _ := splitQualifiedName(name); schema != "" {
		schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgIdent(schema)
	}
	tableSQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	path TEXT PRIMARY KEY,
	page TEXT NOT NULL,
	properties TEXT NOT NULL,
	published BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL
)`, pgTableIdent(name))
	return schemaSQL, tableSQL
}

func buildUpsertSQL(name string) string {
	return fmt.Sprintf(`INSERT INTO %s (path, page, properties, published, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (path) DO UPDATE SET
	page = EXCLUDED.page,
	properties = EXCLUDED.properties,
	published = EXCLUDED.published,
	updated_at = EXCLUDED.updated_at`, pgTableIdent(name))
}
