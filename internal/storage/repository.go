// Package storage holds the SQL-backed page document stores. Backends
// register themselves by kind from init(); callers select one with New.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"pagetransform/internal/modern"
	"pagetransform/internal/sink"
)

// Config selects and configures a backend.
//
// Kind must match a registered backend ("sqlite", "postgres", "mssql").
// DSN is passed through to the backend; validation is backend-specific.
// Table may be schema-qualified and defaults to DefaultTable.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// TableName returns Table or DefaultTable.
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Repository is a sink.DocumentStore backed by a database.
type Repository interface {
	sink.DocumentStore

	// EnsureSchema creates the pages table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// Close releases backend resources. Call once.
	Close()
}

// DefaultTable holds page documents unless Config.Table is set.
const DefaultTable = "transformed_pages"

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register makes a backend available under kind. It panics on an empty
// kind, a nil factory or a duplicate registration.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the backend for cfg.Kind and ensures its schema.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	repo, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", cfg.Kind, err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("storage %s: ensure schema: %w", cfg.Kind, err)
	}
	return repo, nil
}

// Kinds lists the registered backends.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Row is the column form of a sink.Document shared by all backends.
type Row struct {
	Path       string
	Page       string
	Properties string
	Published  bool
}

// EncodeRow serializes doc into a Row.
func EncodeRow(doc sink.Document) (Row, error) {
	page, err := json.Marshal(doc.Page)
	if err != nil {
		return Row{}, fmt.Errorf("encode page %s: %w", doc.Path, err)
	}
	props, err := json.Marshal(doc.Properties)
	if err != nil {
		return Row{}, fmt.Errorf("encode properties %s: %w", doc.Path, err)
	}
	return Row{Path: doc.Path, Page: string(page), Properties: string(props), Published: doc.Published}, nil
}

// DecodeRow is the inverse of EncodeRow. updatedAt is set by the backend.
func DecodeRow(r Row) (sink.Document, error) {
	doc := sink.Document{Path: r.Path, Published: r.Published}
	if r.Page != "" && r.Page != "null" {
		doc.Page = &modern.Page{}
		if err := json.Unmarshal([]byte(r.Page), doc.Page); err != nil {
			return sink.Document{}, fmt.Errorf("decode page %s: %w", r.Path, err)
		}
	}
	if r.Properties != "" {
		if err := json.Unmarshal([]byte(r.Properties), &doc.Properties); err != nil {
			return sink.Document{}, fmt.Errorf("decode properties %s: %w", r.Path, err)
		}
	}
	return doc, nil
}
