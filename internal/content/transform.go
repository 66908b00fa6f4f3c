// Package content maps analyzed blocks onto a target page shell using the
// mapping model, routing values through the url, term and user resolvers.
package content

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pagetransform/internal/mapping"
	"pagetransform/internal/model"
	"pagetransform/internal/modern"
)

// URLRewriter rewrites links in text.
type URLRewriter interface {
	Rewrite(text string) string
}

// TermMapper maps a serialized taxonomy value to target terms.
type TermMapper interface {
	MapValue(ctx context.Context, value string) string
}

// PrincipalMapper maps a source identity to a target identity.
type PrincipalMapper interface {
	RemapPrincipal(ctx context.Context, sourceIdentity string) string
}

// Options gates the resolvers and filters blocks.
type Options struct {
	SkipURLRewrite     bool
	SkipTermMapping    bool
	SkipUserMapping    bool
	SkipHiddenWebParts bool
}

// Stats summarizes one Transform call.
type Stats struct {
	Controls    int
	PassThrough int
	Skipped     int
}

// Transformator fills a page shell with controls.
type Transformator struct {
	Model *mapping.Model
	URLs  URLRewriter
	Terms TermMapper
	Users PrincipalMapper

	Options Options
}

// textTarget is the mapped property that becomes the control body.
const textTarget = "Text"

// Transform places one control per open block, in visual order grouped by
// the block's row (section) and column. Blocks of unmapped types are
// passed through raw; blocks whose mapping is marked Skip are dropped.
// The shell must already hold the sections created by the layout step.
func (t *Transformator) Transform(ctx context.Context, page *modern.Page, blocks []model.ContentBlock) (Stats, error) {
	var st Stats
	if page == nil {
		return st, errors.New("content: nil page")
	}
	if len(page.Sections) == 0 {
		page.AddSection(modern.SectionOneColumn)
	}

	open := make([]model.ContentBlock, 0, len(blocks))
	for _, b := range model.Open(blocks) {
		if b.Hidden && t.Options.SkipHiddenWebParts {
			st.Skipped++
			continue
		}
		open = append(open, b)
	}
	model.SortVisual(open)
	ranks := columnRanks(open)

	for _, b := range open {
		ctrl, ok := t.control(ctx, b)
		if !ok {
			st.Skipped++
			continue
		}
		si := min(max(b.Row, 1), len(page.Sections)) - 1
		sec := &page.Sections[si]
		if len(sec.Columns) == 0 {
			sec.Layout = modern.SectionOneColumn
			sec.Columns = []modern.Column{{Factor: modern.SectionOneColumn.Factors()[0]}}
		}
		ci := min(ranks[b.Row][b.Column], len(sec.Columns)-1)
		col := &sec.Columns[ci]

		ctrl.Order = len(col.Controls) + 1
		col.Controls = append(col.Controls, ctrl)
		st.Controls++
		if ctrl.PassThrough {
			st.PassThrough++
		}
	}
	return st, nil
}

// columnRanks maps each row's used columns to 0-based positions, closing
// gaps left by unused legacy zones.
func columnRanks(blocks []model.ContentBlock) map[int]map[int]int {
	used := map[int][]int{}
	seen := map[[2]int]bool{}
	for _, b := range blocks {
		k := [2]int{b.Row, b.Column}
		if !seen[k] {
			seen[k] = true
			used[b.Row] = append(used[b.Row], b.Column)
		}
	}
	out := make(map[int]map[int]int, len(used))
	for row, cols := range used {
		sort.Ints(cols)
		out[row] = make(map[int]int, len(cols))
		for i, c := range cols {
			out[row][c] = i
		}
	}
	return out
}

func (t *Transformator) control(ctx context.Context, b model.ContentBlock) (modern.Control, bool) {
	wp, ok := t.Model.Lookup(b.Type)
	if !ok {
		return t.passThrough(ctx, b), true
	}
	m := wp.Select(b)
	if m == nil {
		return t.passThrough(ctx, b), true
	}
	if m.Skip {
		return modern.Control{}, false
	}

	ctrl := modern.Control{
		Type:       m.TargetType,
		Title:      b.Title,
		SourceID:   b.ID,
		Properties: map[string]string{},
	}
	for _, v := range m.Apply(b) {
		val := t.route(ctx, v.Kind, v.Value)
		if strings.EqualFold(v.Name, textTarget) {
			ctrl.Text = val
			continue
		}
		ctrl.Properties[v.Name] = val
	}
	return ctrl, true
}

// passThrough keeps an unmapped block as a raw control so no content is
// lost. Its payload and properties still get their links rewritten.
func (t *Transformator) passThrough(ctx context.Context, b model.ContentBlock) modern.Control {
	ctrl := modern.Control{
		Type:        b.Type,
		Title:       b.Title,
		SourceID:    b.ID,
		Text:        t.route(ctx, mapping.KindHTML, b.Payload),
		PassThrough: true,
	}
	if len(b.Properties) > 0 {
		ctrl.Properties = make(map[string]string, len(b.Properties))
		for k, v := range b.Properties {
			ctrl.Properties[k] = t.route(ctx, mapping.KindText, v)
		}
	}
	return ctrl
}

// route sends v through the resolver for kind, unless that resolver is
// skipped or missing.
func (t *Transformator) route(ctx context.Context, kind mapping.Kind, v string) string {
	if v == "" {
		return v
	}
	switch kind {
	case mapping.KindText, mapping.KindHTML, mapping.KindURL:
		if t.Options.SkipURLRewrite || t.URLs == nil {
			return v
		}
		return t.URLs.Rewrite(v)
	case mapping.KindTaxonomy:
		if t.Options.SkipTermMapping || t.Terms == nil {
			return v
		}
		return t.Terms.MapValue(ctx, v)
	case mapping.KindPrincipal:
		if t.Options.SkipUserMapping || t.Users == nil {
			return v
		}
		parts := strings.Split(v, ";")
		for i, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				parts[i] = t.Users.RemapPrincipal(ctx, p)
			}
		}
		return strings.Join(parts, ";")
	}
	return v
}

// MapPageProperties returns props with each value routed by its kind.
func (t *Transformator) MapPageProperties(ctx context.Context, props []model.PageProperty) []model.PageProperty {
	out := make([]model.PageProperty, len(props))
	for i, p := range props {
		p.Value = t.route(ctx, mapping.Kind(p.Kind), p.Value)
		out[i] = p
	}
	return out
}
