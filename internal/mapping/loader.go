// Package mapping loads the declarative mapping model that translates legacy
// block types and properties into target control types and properties.
package mapping

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"pagetransform/internal/diag"
	"pagetransform/internal/model"
)

// SchemaError reports a definition that failed validation. Loading fails
// fast on the first file with issues, listing all issues found in it.
type SchemaError struct {
	Path   string
	Issues []string
}

func (e *SchemaError) Error() string {
	where := e.Path
	if where == "" {
		where = "mapping model"
	}
	return fmt.Sprintf("%s: schema validation failed: %s", where, strings.Join(e.Issues, "; "))
}

func (e *SchemaError) DiagCode() diag.Code { return diag.CodeSchema }

// Source is something a Model can be obtained from: a File path or an
// already-loaded *Model.
type Source interface {
	resolve() (*Model, error)
}

// File is a path to an XML (.xml) or JSON (.json) definition.
type File string

func (f File) resolve() (*Model, error) {
	path := string(f)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping model: %w", err)
	}

	format := strings.ToLower(filepath.Ext(path))
	if format != ".json" && format != ".xml" {
		format = sniff(b)
	}
	m, err := Parse(b, format)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return m, nil
}

func (m *Model) resolve() (*Model, error) {
	if m == nil {
		return nil, &SchemaError{Issues: []string{"nil model"}}
	}
	return m, nil
}

// Load returns the model for src. Passing an existing *Model returns it
// unchanged, so one parsed model can serve many pages.
func Load(src Source) (*Model, error) {
	if src == nil {
		return nil, &SchemaError{Issues: []string{"no mapping source"}}
	}
	return src.resolve()
}

func sniff(b []byte) string {
	t := bytes.TrimSpace(b)
	if len(t) > 0 && t[0] == '{' {
		return ".json"
	}
	return ".xml"
}

// Parse decodes and validates a definition. format is ".xml" or ".json".
func Parse(b []byte, format string) (*Model, error) {
	var def Definition
	switch format {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, &SchemaError{Issues: []string{"decode json: " + err.Error()}}
		}
	default:
		if err := xml.Unmarshal(b, &def); err != nil {
			return nil, &SchemaError{Issues: []string{"decode xml: " + err.Error()}}
		}
		def.Namespace = def.XMLName.Space
	}
	return Compile(def)
}

// Compile validates def and builds the lookup structures.
func Compile(def Definition) (*Model, error) {
	var issues []string
	add := func(format string, a ...any) { issues = append(issues, fmt.Sprintf(format, a...)) }

	if def.Namespace != Namespace {
		add("namespace %q is not %q", def.Namespace, Namespace)
	}
	if len(def.WebParts) == 0 {
		add("no web part mappings")
	}

	m := &Model{
		webParts: make(map[string]*WebPart, len(def.WebParts)),
		layouts:  make(map[string]*PageLayout, len(def.PageLayouts)),
	}

	for i, wp := range def.WebParts {
		key := typeKey(wp.Type)
		if key == "" {
			add("web_parts[%d]: empty type", i)
			continue
		}
		if _, dup := m.webParts[key]; dup {
			add("web_parts[%d]: duplicate type %q", i, wp.Type)
			continue
		}
		if len(wp.Mappings) == 0 {
			add("web part %q: no mappings", wp.Type)
			continue
		}
		cwp := &WebPart{Type: wp.Type}
		defaults := 0
		for j, md := range wp.Mappings {
			cm, errs := compileMapping(md)
			for _, e := range errs {
				add("web part %q mapping[%d]: %s", wp.Type, j, e)
			}
			if md.Default {
				defaults++
			}
			cwp.Mappings = append(cwp.Mappings, cm)
		}
		if defaults > 1 {
			add("web part %q: %d default mappings", wp.Type, defaults)
		}
		m.webParts[key] = cwp
		m.order = append(m.order, wp.Type)
	}

	for i, pl := range def.PageLayouts {
		key := typeKey(pl.Name)
		if key == "" {
			add("page_layouts[%d]: empty name", i)
			continue
		}
		if _, dup := m.layouts[key]; dup {
			add("page_layouts[%d]: duplicate name %q", i, pl.Name)
			continue
		}
		cpl := &PageLayout{Name: pl.Name, Layout: model.PageLayout(pl.Layout)}
		if cpl.Layout == "" {
			cpl.Layout = model.LayoutPublishing
		}
		for j, f := range pl.Fields {
			if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.TargetType) == "" {
				add("page layout %q field[%d]: name and target_type are required", pl.Name, j)
				continue
			}
			if f.Row < 0 || f.Column < 0 || f.Order < 0 {
				add("page layout %q field %q: negative position", pl.Name, f.Name)
				continue
			}
			cpl.Fields = append(cpl.Fields, f)
		}
		for j, pp := range pl.PageProperties {
			if pp.Field == "" || pp.Target == "" {
				add("page layout %q page_property[%d]: field and target are required", pl.Name, j)
				continue
			}
			if !validKind(pp.Kind) {
				add("page layout %q page_property %q: unknown kind %q", pl.Name, pp.Field, pp.Kind)
				continue
			}
			cpl.PageProperties = append(cpl.PageProperties, PageProperty{Field: pp.Field, Target: pp.Target, Kind: Kind(pp.Kind)})
		}
		m.layouts[key] = cpl
	}

	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return m, nil
}

func compileMapping(md MappingDef) (*Mapping, []string) {
	var errs []string
	cm := &Mapping{
		Name:          md.Name,
		Selector:      md.Selector,
		SelectorValue: md.SelectorValue,
		Default:       md.Default,
		Skip:          md.Skip,
		TargetType:    md.TargetType,
	}
	if !md.Skip && strings.TrimSpace(md.TargetType) == "" {
		errs = append(errs, "target_type is required unless skip is set")
	}
	for k, pd := range md.Properties {
		rule, err := compileRule(pd)
		if err != nil {
			errs = append(errs, fmt.Sprintf("property[%d]: %v", k, err))
			continue
		}
		cm.Rules = append(cm.Rules, rule)
	}
	return cm, errs
}

func compileRule(pd PropertyDef) (Rule, error) {
	r := Rule{
		Source:      pd.Name,
		Target:      pd.Target,
		Kind:        Kind(pd.Kind),
		Value:       pd.Value,
		Replacement: pd.Replacement,
		As:          strings.ToLower(pd.As),
		Default:     pd.Default,
	}
	if strings.TrimSpace(pd.Target) == "" {
		return r, fmt.Errorf("target is required")
	}
	if !validKind(pd.Kind) {
		return r, fmt.Errorf("unknown kind %q", pd.Kind)
	}

	switch strings.ToLower(pd.Rule) {
	case RuleRename, "":
		r.Op = RuleRename
		if pd.Name == "" {
			return r, fmt.Errorf("rename requires name")
		}
	case RuleRegex:
		r.Op = RuleRegex
		if pd.Name == "" || pd.Pattern == "" {
			return r, fmt.Errorf("regex requires name and pattern")
		}
		re, err := regexp.Compile(pd.Pattern)
		if err != nil {
			return r, fmt.Errorf("invalid regex for target=%q: %w", pd.Target, err)
		}
		r.re = re
	case RuleConstant:
		r.Op = RuleConstant
	case RuleCoerce:
		r.Op = RuleCoerce
		if pd.Name == "" {
			return r, fmt.Errorf("coerce requires name")
		}
		if _, ok := coercions[r.As]; !ok {
			return r, fmt.Errorf("unknown coercion %q", pd.As)
		}
	default:
		return r, fmt.Errorf("unknown rule %q", pd.Rule)
	}
	return r, nil
}

func validKind(k string) bool {
	switch Kind(k) {
	case KindPlain, KindText, KindHTML, KindURL, KindTaxonomy, KindPrincipal:
		return true
	}
	return false
}
