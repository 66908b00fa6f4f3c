// Package taxonomy resolves taxonomy term references between a source and a
// target term store. Terms are cached per store context and per term set;
// population is lazy, idempotent and safe under concurrent callers.
package taxonomy

import (
	"context"
	"strings"
	"sync"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ContextID identifies one term store context, typically the site URL the
// store was reached through.
type ContextID string

// TermCacheEntry is one cached term.
type TermCacheEntry struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Path      string `json:"path,omitempty"`
	TermSetID string `json:"term_set_id,omitempty"`
}

// IsEmpty reports whether e is the empty sentinel.
func (e TermCacheEntry) IsEmpty() bool { return e.ID == "" }

// PathSeparator joins term labels into a term path.
const PathSeparator = ";"

type entryKey struct {
	ctx ContextID
	key string
}

// Cache is the shared term cache. The zero value is not usable; use
// NewCache. Entries are never expired: once a (context, id) pair is cached
// it is authoritative for the lifetime of the Cache.
type Cache struct {
	mu        sync.RWMutex
	byID      map[entryKey]TermCacheEntry
	byLabel   map[entryKey][]TermCacheEntry
	populated map[entryKey]struct{}

	group singleflight.Group
}

func NewCache() *Cache {
	return &Cache{
		byID:      make(map[entryKey]TermCacheEntry),
		byLabel:   make(map[entryKey][]TermCacheEntry),
		populated: make(map[entryKey]struct{}),
	}
}

// NormalizeID returns the canonical lower-case form of a GUID, with or
// without braces. Values that are not GUIDs are trimmed and lower-cased.
func NormalizeID(id string) string {
	s := strings.Trim(strings.TrimSpace(id), "{}")
	if u, err := uuid.FromString(s); err == nil {
		return u.String()
	}
	return strings.ToLower(s)
}

// NormalizeLabel folds case and Unicode composition so labels compare the
// way users read them.
func NormalizeLabel(label string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(label)))
}

// Add caches entries under ctx. Existing ids are kept.
func (c *Cache) Add(ctx ContextID, entries ...TermCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(ctx, entries)
}

func (c *Cache) addLocked(ctx ContextID, entries []TermCacheEntry) {
	for _, e := range entries {
		e.ID = NormalizeID(e.ID)
		if e.ID == "" {
			continue
		}
		e.TermSetID = NormalizeID(e.TermSetID)
		k := entryKey{ctx, e.ID}
		if _, ok := c.byID[k]; ok {
			continue
		}
		c.byID[k] = e
		lk := entryKey{ctx, NormalizeLabel(e.Label)}
		c.byLabel[lk] = append(c.byLabel[lk], e)
	}
}

// ResolveByID returns the cached entry for id. Unknown or malformed ids
// return the empty sentinel and false.
func (c *Cache) ResolveByID(ctx ContextID, id string) (TermCacheEntry, bool) {
	if c == nil {
		return TermCacheEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[entryKey{ctx, NormalizeID(id)}]
	return e, ok
}

// ResolveByLabel returns every cached entry with the label, in cache
// insertion order. Callers disambiguate collisions by Path.
func (c *Cache) ResolveByLabel(ctx ContextID, label string) []TermCacheEntry {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	found := c.byLabel[entryKey{ctx, NormalizeLabel(label)}]
	if len(found) == 0 {
		return nil
	}
	return append([]TermCacheEntry(nil), found...)
}

// Populated reports whether termSetID was loaded for ctx.
func (c *Cache) Populated(ctx ContextID, termSetID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.populated[entryKey{ctx, NormalizeID(termSetID)}]
	return ok
}

// LoadFunc reads every term of one set.
type LoadFunc func(ctx context.Context) ([]TermCacheEntry, error)

// Populate loads termSetID for cid once. Concurrent callers for the same
// set share one load; a set that is already populated is not reloaded. A
// failed load leaves the set unpopulated so a later call may retry.
func (c *Cache) Populate(ctx context.Context, cid ContextID, termSetID string, load LoadFunc) error {
	if c.Populated(cid, termSetID) {
		return nil
	}
	set := NormalizeID(termSetID)
	_, err, _ := c.group.Do(string(cid)+"\x00"+set, func() (any, error) {
		if c.Populated(cid, termSetID) {
			return nil, nil
		}
		entries, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		for i := range entries {
			if entries[i].TermSetID == "" {
				entries[i].TermSetID = set
			}
		}
		c.addLocked(cid, entries)
		c.populated[entryKey{cid, set}] = struct{}{}
		return nil, nil
	})
	return err
}

// Len returns the number of cached entries for ctx.
func (c *Cache) Len(ctx ContextID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for k := range c.byID {
		if k.ctx == ctx {
			n++
		}
	}
	return n
}
