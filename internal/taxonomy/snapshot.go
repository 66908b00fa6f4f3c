package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// SnapshotStore serves an exported term store from a JSON file:
//
//	{"term_sets": {"<term set id>": [{"id": "...", "label": "...", "path": "..."}]}}
//
// Child terms are part of the exported list; includeChildren only filters
// out terms whose path has more than one level.
type SnapshotStore struct {
	sets     map[string][]Term
	ids      map[string]struct{}
	pageSize int
}

type snapshotFile struct {
	TermSets map[string][]Term `json:"term_sets"`
}

// DefaultSnapshotPageSize is the page size of ListTerms.
const DefaultSnapshotPageSize = 200

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*SnapshotStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read term snapshot: %w", err)
	}
	var f snapshotFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode term snapshot %s: %w", path, err)
	}
	return NewSnapshotStore(f.TermSets, DefaultSnapshotPageSize), nil
}

// NewSnapshotStore builds a store from in-memory term sets.
func NewSnapshotStore(sets map[string][]Term, pageSize int) *SnapshotStore {
	if pageSize <= 0 {
		pageSize = DefaultSnapshotPageSize
	}
	s := &SnapshotStore{
		sets:     make(map[string][]Term, len(sets)),
		ids:      make(map[string]struct{}),
		pageSize: pageSize,
	}
	for id, terms := range sets {
		s.sets[NormalizeID(id)] = terms
		for _, t := range terms {
			s.ids[NormalizeID(t.ID)] = struct{}{}
		}
	}
	return s
}

func (s *SnapshotStore) ListTerms(ctx context.Context, termSetID string, includeChildren bool, pageToken string) (TermPage, error) {
	if err := ctx.Err(); err != nil {
		return TermPage{}, err
	}
	terms, ok := s.sets[NormalizeID(termSetID)]
	if !ok {
		return TermPage{}, fmt.Errorf("term set %s not found", termSetID)
	}
	if !includeChildren {
		terms = topLevel(terms)
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return TermPage{}, fmt.Errorf("bad page token %q", pageToken)
		}
		start = n
	}
	if start > len(terms) {
		start = len(terms)
	}
	end := start + s.pageSize
	if end > len(terms) {
		end = len(terms)
	}
	page := TermPage{Terms: terms[start:end]}
	if end < len(terms) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (s *SnapshotStore) HasTerm(ctx context.Context, id string) (bool, error) {
	_, ok := s.ids[NormalizeID(id)]
	return ok, nil
}

func topLevel(terms []Term) []Term {
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Path == "" || t.Path == t.Label {
			out = append(out, t)
		}
	}
	return out
}

var _ Store = (*SnapshotStore)(nil)
