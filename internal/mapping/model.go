package mapping

import (
	"regexp"
	"strconv"
	"strings"

	"pagetransform/internal/model"

	"github.com/gofrs/uuid"
	"github.com/spf13/cast"
)

// Model is the compiled, read-only mapping model. It is safe for concurrent
// use by many pages.
type Model struct {
	webParts map[string]*WebPart
	layouts  map[string]*PageLayout
	order    []string
}

// WebPart is the compiled mapping of one legacy type.
type WebPart struct {
	Type     string
	Mappings []*Mapping
}

// Mapping is one compiled alternative.
type Mapping struct {
	Name          string
	Selector      string
	SelectorValue string
	Default       bool
	Skip          bool
	TargetType    string
	Rules         []Rule
}

// Rule is one compiled property transform.
type Rule struct {
	Op          string
	Source      string
	Target      string
	Kind        Kind
	Value       string
	Replacement string
	As          string
	Default     string

	re *regexp.Regexp
}

// PageLayout is a compiled publishing layout mapping.
type PageLayout struct {
	Name           string
	Layout         model.PageLayout
	Fields         []FieldDef
	PageProperties []PageProperty
}

type PageProperty struct {
	Field  string
	Target string
	Kind   Kind
}

// Value is one mapped property value with its routing kind.
type Value struct {
	Name  string
	Value string
	Kind  Kind
}

func typeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Types returns the mapped legacy types in definition order.
func (m *Model) Types() []string {
	return append([]string(nil), m.order...)
}

// Lookup returns the mapping for a legacy block type. Matching is
// case-insensitive and also accepts the short type name
// ("ContentEditorWebPart" for "Microsoft.SharePoint.WebPartPages.ContentEditorWebPart").
// When several types share a short name, the first defined wins.
func (m *Model) Lookup(blockType string) (*WebPart, bool) {
	if m == nil {
		return nil, false
	}
	k := typeKey(blockType)
	if wp, ok := m.webParts[k]; ok {
		return wp, true
	}
	short := shortType(k)
	for _, t := range m.order {
		key := typeKey(t)
		if shortType(key) == short {
			return m.webParts[key], true
		}
	}
	return nil, false
}

// shortType strips the namespace and assembly qualifier from a type name.
func shortType(k string) string {
	if i := strings.Index(k, ","); i >= 0 {
		k = k[:i]
	}
	if i := strings.LastIndex(k, "."); i >= 0 {
		k = k[i+1:]
	}
	return strings.TrimSpace(k)
}

// PageLayout returns the publishing layout mapping by name.
func (m *Model) PageLayout(name string) (*PageLayout, bool) {
	if m == nil {
		return nil, false
	}
	pl, ok := m.layouts[typeKey(name)]
	return pl, ok
}

// Select returns the first alternative whose selector matches the block,
// falling back to the Default alternative. It returns nil when nothing
// applies.
func (w *WebPart) Select(b model.ContentBlock) *Mapping {
	var def *Mapping
	for _, m := range w.Mappings {
		if m.Default && def == nil {
			def = m
		}
		if m.matches(b) {
			return m
		}
	}
	return def
}

func (m *Mapping) matches(b model.ContentBlock) bool {
	if m.Selector == "" {
		return !m.Default
	}
	v, ok := sourceValue(b, m.Selector)
	if !ok {
		return false
	}
	if m.SelectorValue == "" {
		return strings.TrimSpace(v) != ""
	}
	return strings.EqualFold(strings.TrimSpace(v), m.SelectorValue)
}

// Apply runs the rules against b. Values are returned in rule order. A rule
// whose source property is absent contributes its Default, or nothing.
// Failed coercions keep the uncoerced value rather than dropping content.
func (m *Mapping) Apply(b model.ContentBlock) []Value {
	out := make([]Value, 0, len(m.Rules))
	for _, r := range m.Rules {
		if v, ok := r.apply(b); ok {
			out = append(out, Value{Name: r.Target, Value: v, Kind: r.Kind})
		}
	}
	return out
}

func (r Rule) apply(b model.ContentBlock) (string, bool) {
	if r.Op == RuleConstant {
		return r.Value, true
	}

	v, ok := sourceValue(b, r.Source)
	if !ok {
		if r.Default != "" {
			return r.Default, true
		}
		return "", false
	}

	switch r.Op {
	case RuleRegex:
		return applyRegex(v, r.re, r.Replacement, r.Default)
	case RuleCoerce:
		if c, err := coercions[r.As](v); err == nil {
			return c, true
		}
		return v, true
	default:
		return v, true
	}
}

// applyRegex rewrites v with re. With a replacement, every match is
// replaced. Without one, the value is filtered: capture group 1 (or the whole
// match) is kept, and a value that does not match yields def or nothing.
func applyRegex(v string, re *regexp.Regexp, replacement, def string) (string, bool) {
	if replacement != "" {
		return re.ReplaceAllString(v, replacement), true
	}
	sm := re.FindStringSubmatch(v)
	if len(sm) == 0 {
		if def != "" {
			return def, true
		}
		return "", false
	}
	if len(sm) > 1 {
		return sm[1], true
	}
	return sm[0], true
}

func sourceValue(b model.ContentBlock, name string) (string, bool) {
	switch name {
	case PayloadProperty:
		return b.Payload, b.Payload != ""
	case TitleProperty:
		return b.Title, b.Title != ""
	}
	if b.Properties == nil {
		return "", false
	}
	if v, ok := b.Properties[name]; ok {
		return v, true
	}
	for k, v := range b.Properties {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

var coercions = map[string]func(string) (string, error){
	"int": func(s string) (string, error) {
		n, err := cast.ToIntE(strings.TrimSpace(s))
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	},
	"bool": func(s string) (string, error) {
		b, err := cast.ToBoolE(strings.TrimSpace(s))
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	},
	"guid": func(s string) (string, error) {
		id, err := uuid.FromString(strings.Trim(strings.TrimSpace(s), "{}"))
		if err != nil {
			return "", err
		}
		return id.String(), nil
	},
	"lower": func(s string) (string, error) { return strings.ToLower(s), nil },
	"upper": func(s string) (string, error) { return strings.ToUpper(s), nil },
	"trim":  func(s string) (string, error) { return strings.TrimSpace(s), nil },
}
