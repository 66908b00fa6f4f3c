package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pagetransform/internal/modern"

	"github.com/gofrs/uuid"
)

// Staged implements Sink over a DocumentStore. Pages are assembled in
// memory per handle and only reach the store on Save and Publish.
type Staged struct {
	store DocumentStore
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]*Document
}

// NewStaged returns a Sink writing to store.
func NewStaged(store DocumentStore) *Staged {
	return &Staged{
		store:   store,
		now:     time.Now,
		pending: map[string]*Document{},
	}
}

var errUnknownHandle = errors.New("sink: unknown handle")

// Open returns a read-only handle for an existing page, or ErrNotFound.
// Nothing is staged.
func (s *Staged) Open(ctx context.Context, path string) (Handle, error) {
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Path: doc.Path}, nil
}

// CreatePage returns a handle for a new, empty page at path. An existing
// page is replaced when the handle is saved.
func (s *Staged) CreatePage(_ context.Context, path string) (Handle, error) {
	if path == "" {
		return Handle{}, errors.New("sink: empty page path")
	}
	return s.stage(Document{Path: path}), nil
}

func (s *Staged) stage(doc Document) Handle {
	id, err := uuid.NewV4()
	h := Handle{Path: doc.Path, ID: id.String()}
	if err != nil {
		h.ID = fmt.Sprintf("%s@%d", doc.Path, s.now().UnixNano())
	}
	if doc.Properties == nil {
		doc.Properties = map[string]string{}
	}
	s.mu.Lock()
	s.pending[h.ID] = &doc
	s.mu.Unlock()
	return h
}

func (s *Staged) doc(h Handle) (*Document, error) {
	d, ok := s.pending[h.ID]
	if !ok || h.ID == "" {
		return nil, fmt.Errorf("%w %q", errUnknownHandle, h.ID)
	}
	return d, nil
}

// WriteSections stores page as the handle's content.
func (s *Staged) WriteSections(_ context.Context, h Handle, page *modern.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(h)
	if err != nil {
		return err
	}
	d.Page = page
	return nil
}

func (s *Staged) SetProperty(_ context.Context, h Handle, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(h)
	if err != nil {
		return err
	}
	d.Properties[key] = value
	return nil
}

// Save persists the handle's document at path.
func (s *Staged) Save(ctx context.Context, h Handle, path string) error {
	s.mu.Lock()
	d, err := s.doc(h)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if path != "" {
		d.Path = path
	}
	d.UpdatedAt = s.now().UTC()
	snap := *d
	s.mu.Unlock()

	return s.store.Put(ctx, snap)
}

// Publish marks the saved page published and releases the handle.
func (s *Staged) Publish(ctx context.Context, h Handle) error {
	s.mu.Lock()
	d, err := s.doc(h)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	d.Published = true
	d.UpdatedAt = s.now().UTC()
	snap := *d
	delete(s.pending, h.ID)
	s.mu.Unlock()

	return s.store.Put(ctx, snap)
}

// Release drops the staged document of h. Releasing an unknown or
// already released handle is a no-op.
func (s *Staged) Release(_ context.Context, h Handle) error {
	s.mu.Lock()
	delete(s.pending, h.ID)
	s.mu.Unlock()
	return nil
}

// Pending returns the number of staged, unreleased handles.
func (s *Staged) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

var _ Sink = (*Staged)(nil)
