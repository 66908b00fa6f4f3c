package analyzer

import (
	"fmt"
	"strings"

	"pagetransform/internal/diag"
	"pagetransform/internal/mapping"
	"pagetransform/internal/model"
	"pagetransform/internal/source"

	"github.com/gofrs/uuid"
)

// RejectedError is returned for page types that cannot be transformed.
type RejectedError struct {
	Type   model.PageType
	Reason string
}

func (e *RejectedError) Error() string {
	t := string(e.Type)
	if t == "" {
		t = "unknown"
	}
	return fmt.Sprintf("page type %s rejected: %s", t, e.Reason)
}

func (e *RejectedError) DiagCode() diag.Code { return diag.CodeValidation }

// Options tunes extraction.
type Options struct {
	// Model supplies publishing page layout mappings. Optional.
	Model *mapping.Model

	// HandleWikiImagesAndVideos lifts standalone images and videos out of
	// wiki text into their own blocks.
	HandleWikiImagesAndVideos bool
}

// Strategy extracts one page family.
type Strategy interface {
	Analyze(rec source.Record, opts Options) (model.Analysis, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(rec source.Record, opts Options) (model.Analysis, error)

func (f StrategyFunc) Analyze(rec source.Record, opts Options) (model.Analysis, error) {
	return f(rec, opts)
}

var strategies = map[model.PageType]Strategy{
	model.PageTypeWiki:       StrategyFunc(analyzeWiki),
	model.PageTypeWebPart:    StrategyFunc(analyzeWebPartPage),
	model.PageTypePublishing: StrategyFunc(analyzePublishing),
	model.PageTypeBlog:       StrategyFunc(analyzeBlog),
}

// For returns the strategy for t.
func For(t model.PageType) (Strategy, bool) {
	s, ok := strategies[t]
	return s, ok
}

// Reject returns the RejectedError for t, or nil when t is transformable.
func Reject(t model.PageType) error {
	switch t {
	case model.PageTypeAlreadyModern:
		return &RejectedError{Type: t, Reason: "page is already a modern page"}
	case model.PageTypePlainASPX:
		return &RejectedError{Type: t, Reason: "plain aspx pages have no transformable content"}
	case model.PageTypeUnknown:
		return &RejectedError{Type: t, Reason: "page type could not be detected"}
	}
	return nil
}

// Analyze detects the page type of rec and extracts it. Blocks come back
// in visual order: row, then column, then order within the zone.
func Analyze(rec source.Record, opts Options) (model.Analysis, error) {
	t := Detect(rec)
	if err := Reject(t); err != nil {
		return model.Analysis{Type: t}, err
	}
	s, ok := For(t)
	if !ok {
		return model.Analysis{Type: t}, &RejectedError{Type: t, Reason: "no analyzer registered"}
	}
	a, err := s.Analyze(rec, opts)
	if err != nil {
		return a, err
	}
	a.Type = t
	model.SortVisual(a.Blocks)
	a.PageProperties = append(commonProperties(rec), a.PageProperties...)
	return a, nil
}

// commonProperties harvests the page-level fields every family stores.
// Absent fields are omitted.
func commonProperties(rec source.Record) []model.PageProperty {
	fields := []struct {
		name string
		kind mapping.Kind
	}{
		{FieldTitle, mapping.KindPlain},
		{FieldAuthor, mapping.KindPrincipal},
		{FieldEditor, mapping.KindPrincipal},
		{FieldCreated, mapping.KindPlain},
		{FieldModified, mapping.KindPlain},
	}
	var out []model.PageProperty
	for _, f := range fields {
		if v, ok := rec.FieldValue(f.name); ok {
			out = append(out, model.PageProperty{Name: f.name, Value: v, Kind: string(f.kind)})
		}
	}
	return out
}

// normalizeID canonicalizes web part ids so wiki references match export
// ids with or without braces.
func normalizeID(id string) string {
	s := strings.Trim(strings.TrimSpace(id), "{}")
	if u, err := uuid.FromString(s); err == nil {
		return u.String()
	}
	return strings.ToLower(s)
}

func blockFromWebPart(wp source.WebPart) model.ContentBlock {
	props := make(map[string]string, len(wp.Properties))
	for k, v := range wp.Properties {
		props[k] = v
	}
	return model.ContentBlock{
		ID:         wp.ID,
		Type:       wp.Type,
		Title:      wp.Title,
		Properties: props,
		Payload:    wp.Payload,
		Closed:     wp.Closed,
		Hidden:     wp.Hidden,
	}
}
