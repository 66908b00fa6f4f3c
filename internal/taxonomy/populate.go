package taxonomy

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Endpoint is one side (source or target) of a term mapping.
type Endpoint struct {
	Context ContextID
	Store   Store
	Legacy  LegacyTermService

	// FieldSchemaXML is the serialized schema of a taxonomy field of this
	// context. The legacy fallback reads the term store group id (and a
	// missing term set id) from it.
	FieldSchemaXML string
}

// Service populates a Cache from the source and target endpoints.
type Service struct {
	Cache  *Cache
	Source Endpoint
	Target Endpoint
	Log    log.FieldLogger
}

func (s *Service) logger() log.FieldLogger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

// CacheTermsFromStore reads every term of the source and target sets into
// the cache. Sets that are already cached are not read again. When a
// store's modern API is unavailable its legacy service is used instead and
// produces the same cache shape. targetGroupID addresses the target legacy
// service; when empty it is taken from the target field schema.
func (s *Service) CacheTermsFromStore(ctx context.Context, sourceTermSetID, targetTermSetID, targetGroupID string, includeChildren bool) error {
	if s.Cache == nil {
		return errors.New("taxonomy: nil cache")
	}
	var errs []error
	if sourceTermSetID != "" {
		if err := s.populate(ctx, s.Source, sourceTermSetID, "", includeChildren); err != nil {
			errs = append(errs, fmt.Errorf("source term set %s: %w", sourceTermSetID, err))
		}
	}
	if targetTermSetID != "" {
		if err := s.populate(ctx, s.Target, targetTermSetID, targetGroupID, includeChildren); err != nil {
			errs = append(errs, fmt.Errorf("target term set %s: %w", targetTermSetID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) populate(ctx context.Context, ep Endpoint, termSetID, groupID string, includeChildren bool) error {
	return s.Cache.Populate(ctx, ep.Context, termSetID, func(ctx context.Context) ([]TermCacheEntry, error) {
		entries, err := readStore(ctx, ep.Store, termSetID, includeChildren)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		if ep.Legacy == nil {
			return nil, err
		}
		s.logger().WithFields(log.Fields{
			"context":  ep.Context,
			"term_set": termSetID,
		}).Warn("term store unavailable, using legacy term service")
		return readLegacy(ctx, ep, termSetID, groupID, includeChildren)
	})
}

func readStore(ctx context.Context, st Store, termSetID string, includeChildren bool) ([]TermCacheEntry, error) {
	if st == nil {
		return nil, ErrStoreUnavailable
	}
	var out []TermCacheEntry
	token := ""
	for {
		page, err := st.ListTerms(ctx, termSetID, includeChildren, token)
		if err != nil {
			return nil, err
		}
		for _, t := range page.Terms {
			path := t.Path
			if path == "" {
				path = t.Label
			}
			out = append(out, TermCacheEntry{ID: t.ID, Label: t.Label, Path: path, TermSetID: termSetID})
		}
		if page.NextToken == "" || page.NextToken == token {
			return out, nil
		}
		token = page.NextToken
	}
}

func readLegacy(ctx context.Context, ep Endpoint, termSetID, groupID string, includeChildren bool) ([]TermCacheEntry, error) {
	if groupID == "" {
		id, err := ExtractTermSetOrGroupID(ep.FieldSchemaXML, true)
		if err != nil {
			return nil, err
		}
		groupID = id
	}

	roots, err := ep.Legacy.FindTermSet(ctx, groupID, termSetID)
	if err != nil {
		return nil, fmt.Errorf("legacy term set: %w", err)
	}

	var out []TermCacheEntry
	var walk func(terms []LegacyTerm, parent string) error
	walk = func(terms []LegacyTerm, parent string) error {
		for _, t := range terms {
			path := t.Label
			if parent != "" {
				path = parent + PathSeparator + t.Label
			}
			out = append(out, TermCacheEntry{ID: t.ID, Label: t.Label, Path: path, TermSetID: termSetID})
			if !includeChildren || !t.HasChildren {
				continue
			}
			children, err := ep.Legacy.FindChildTerms(ctx, groupID, termSetID, t.ID, path)
			if err != nil {
				return fmt.Errorf("legacy child terms of %s: %w", t.ID, err)
			}
			if err := walk(children, path); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(roots, ""); err != nil {
		return nil, err
	}
	return out, nil
}
