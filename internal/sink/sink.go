// Package sink is the persistence contract for produced pages.
//
// A Sink hands out a Handle for a page path, accepts sections and page
// properties against that handle, and persists on Save. Publish marks the
// saved page published. Release drops whatever the sink holds for a handle;
// callers release every handle they created. Implementations must report a
// missing page as ErrNotFound so callers can tell "absent" from "unreachable".
//
// Open only checks that a page exists. Its handle carries the path and is
// not writable.
package sink

import (
	"context"
	"errors"
	"time"

	"pagetransform/internal/modern"
)

// ErrNotFound is returned by Open and DocumentStore.Get for absent pages.
var ErrNotFound = errors.New("sink: page not found")

// Handle identifies one page under construction. Handles returned by Open
// have no ID.
type Handle struct {
	ID   string
	Path string
}

// Sink persists target pages.
type Sink interface {
	Open(ctx context.Context, path string) (Handle, error)
	CreatePage(ctx context.Context, path string) (Handle, error)
	WriteSections(ctx context.Context, h Handle, page *modern.Page) error
	SetProperty(ctx context.Context, h Handle, key, value string) error
	Save(ctx context.Context, h Handle, path string) error
	Publish(ctx context.Context, h Handle) error
	Release(ctx context.Context, h Handle) error
}

// Document is the persisted form of one page.
type Document struct {
	Path       string            `json:"path"`
	Page       *modern.Page      `json:"page"`
	Properties map[string]string `json:"properties,omitempty"`
	Published  bool              `json:"published"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DocumentStore is the storage underneath a Staged sink. Get returns
// ErrNotFound for an unknown path; Put replaces the document at doc.Path.
type DocumentStore interface {
	Get(ctx context.Context, path string) (Document, error)
	Put(ctx context.Context, doc Document) error
}
