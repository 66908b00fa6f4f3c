package taxonomy

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned by a Store whose modern API cannot be
// used. It triggers the legacy service fallback.
var ErrStoreUnavailable = errors.New("taxonomy: term store unavailable")

// Term is one term as read from a store.
type Term struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Path is the semicolon-joined label path from the term set root.
	Path string `json:"path,omitempty"`
}

// TermPage is one page of a paged term listing.
type TermPage struct {
	Terms []Term
	// NextToken is empty on the last page.
	NextToken string
}

// Store is the modern taxonomy API of one context.
type Store interface {
	ListTerms(ctx context.Context, termSetID string, includeChildren bool, pageToken string) (TermPage, error)
	HasTerm(ctx context.Context, id string) (bool, error)
}

// LegacyTerm is one node returned by the legacy discovery service.
type LegacyTerm struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	HasChildren bool   `json:"has_children,omitempty"`
}

// LegacyTermService is the legacy discovery service. groupID is the term
// store identifier taken from a taxonomy field schema.
type LegacyTermService interface {
	FindTermSet(ctx context.Context, groupID, termSetID string) ([]LegacyTerm, error)
	FindChildTerms(ctx context.Context, groupID, termSetID, termID, path string) ([]LegacyTerm, error)
}
