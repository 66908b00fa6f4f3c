package taxonomy

import (
	"context"
	"strings"

	"pagetransform/internal/mapfile"

	"github.com/gofrs/uuid"
)

// Resolver maps source term references onto target terms. Lookups never
// fail: a term that cannot be resolved yields the empty sentinel.
type Resolver struct {
	Cache  *Cache
	Source ContextID
	Target ContextID

	// TargetStore answers same-id pass-through checks for ids that are not
	// cached on the target side. Optional.
	TargetStore Store

	// Mappings holds explicit term overrides keyed by source label or id.
	Mappings *mapfile.File
}

// Resolve returns the target term for a source term given by id and/or
// label. Precedence: mapping file override, same id present in the target,
// source cache by id matched by label and path into the target, target
// cache by label.
func (r *Resolver) Resolve(ctx context.Context, id, label string) (TermCacheEntry, bool) {
	if r == nil {
		return TermCacheEntry{}, false
	}

	if e, ok := r.fromMapping(ctx, id, label); ok {
		return e, true
	}

	if id != "" {
		if e, ok := r.Cache.ResolveByID(r.Target, id); ok {
			return e, true
		}
		if r.TargetStore != nil {
			// Store errors count as a miss.
			if has, err := r.TargetStore.HasTerm(ctx, NormalizeID(id)); err == nil && has {
				return TermCacheEntry{ID: NormalizeID(id), Label: label}, true
			}
		}
		if src, ok := r.Cache.ResolveByID(r.Source, id); ok {
			if e, ok := pick(r.Cache.ResolveByLabel(r.Target, src.Label), src.Path); ok {
				return e, true
			}
		}
	}

	if label != "" {
		if e, ok := pick(r.Cache.ResolveByLabel(r.Target, label), ""); ok {
			return e, true
		}
	}
	return TermCacheEntry{}, false
}

func (r *Resolver) fromMapping(ctx context.Context, id, label string) (TermCacheEntry, bool) {
	if r.Mappings.Len() == 0 {
		return TermCacheEntry{}, false
	}
	target, ok := "", false
	if id != "" {
		target, ok = r.Mappings.Lookup(NormalizeID(id))
		if !ok {
			target, ok = r.Mappings.Lookup(id)
		}
	}
	if !ok && label != "" {
		target, ok = r.Mappings.Lookup(label)
	}
	if !ok || strings.TrimSpace(target) == "" {
		return TermCacheEntry{}, false
	}

	if isGUID(target) {
		tid := NormalizeID(target)
		if e, ok := r.Cache.ResolveByID(r.Target, tid); ok {
			return e, true
		}
		return TermCacheEntry{ID: tid, Label: label}, true
	}
	return pick(r.Cache.ResolveByLabel(r.Target, target), "")
}

// pick chooses among label collisions: the entry whose path matches, or
// the first entry when no path is known or none matches.
func pick(candidates []TermCacheEntry, path string) (TermCacheEntry, bool) {
	if len(candidates) == 0 {
		return TermCacheEntry{}, false
	}
	if path != "" {
		want := NormalizeLabel(path)
		for _, c := range candidates {
			if NormalizeLabel(c.Path) == want {
				return c, true
			}
		}
	}
	return candidates[0], true
}

func isGUID(s string) bool {
	_, err := uuid.FromString(strings.Trim(strings.TrimSpace(s), "{}"))
	return err == nil
}

// MapValue rewrites a serialized taxonomy value ("Label|guid;Label|guid",
// legacy "-1;#Label|guid" forms included) to its target terms. Unresolved
// terms are dropped.
func (r *Resolver) MapValue(ctx context.Context, value string) string {
	refs := ParseValue(value)
	if len(refs) == 0 {
		return ""
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		e, ok := r.Resolve(ctx, ref.ID, ref.Label)
		if !ok {
			continue
		}
		lbl := e.Label
		if lbl == "" {
			lbl = ref.Label
		}
		out = append(out, lbl+"|"+e.ID)
	}
	return strings.Join(out, ";")
}

// TermRef is one parsed term reference.
type TermRef struct {
	Label string
	ID    string
}

// ParseValue splits a serialized taxonomy field value into references.
// Tokens without a "|" separator (lookup ids, empty parts) are skipped.
func ParseValue(value string) []TermRef {
	value = strings.ReplaceAll(value, ";#", ";")
	var refs []TermRef
	for _, tok := range strings.Split(value, ";") {
		tok = strings.TrimSpace(tok)
		i := strings.LastIndex(tok, "|")
		if i < 0 {
			continue
		}
		label, id := strings.TrimSpace(tok[:i]), strings.TrimSpace(tok[i+1:])
		if label == "" && id == "" {
			continue
		}
		refs = append(refs, TermRef{Label: label, ID: id})
	}
	return refs
}
