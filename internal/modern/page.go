// Package modern is the target page model: ordered sections of columns
// holding typed controls, plus page-level properties.
package modern

import "strings"

// SectionLayout is the column template of a section.
type SectionLayout string

const (
	SectionOneColumn          SectionLayout = "OneColumn"
	SectionTwoColumn          SectionLayout = "TwoColumn"
	SectionTwoColumnLeft      SectionLayout = "TwoColumnLeft"
	SectionTwoColumnRight     SectionLayout = "TwoColumnRight"
	SectionThreeColumn        SectionLayout = "ThreeColumn"
	SectionOneColumnFullWidth SectionLayout = "OneColumnFullWidth"
)

// Factors returns the column width factors (out of 12) for the layout.
func (l SectionLayout) Factors() []int {
	switch l {
	case SectionTwoColumn:
		return []int{6, 6}
	case SectionTwoColumnLeft:
		return []int{8, 4}
	case SectionTwoColumnRight:
		return []int{4, 8}
	case SectionThreeColumn:
		return []int{4, 4, 4}
	default:
		return []int{12}
	}
}

// LayoutForColumns returns the even layout for n columns.
func LayoutForColumns(n int) SectionLayout {
	switch {
	case n >= 3:
		return SectionThreeColumn
	case n == 2:
		return SectionTwoColumn
	default:
		return SectionOneColumn
	}
}

// Control is one typed content unit on the target page.
type Control struct {
	Type       string            `json:"type"`
	Title      string            `json:"title,omitempty"`
	Order      int               `json:"order"`
	Text       string            `json:"text,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	// SourceID is the id of the legacy block this control came from.
	SourceID string `json:"source_id,omitempty"`
	// PassThrough marks controls emitted without a mapping rule.
	PassThrough bool `json:"pass_through,omitempty"`
}

// IsText reports whether the control is a rich text control.
func (c Control) IsText() bool {
	return strings.EqualFold(c.Type, "Text")
}

type Column struct {
	Factor   int       `json:"factor"`
	Controls []Control `json:"controls"`
}

type Section struct {
	Order   int           `json:"order"`
	Layout  SectionLayout `json:"layout"`
	Columns []Column      `json:"columns"`
}

// Empty reports whether no column holds a control.
func (s Section) Empty() bool {
	for _, c := range s.Columns {
		if len(c.Controls) > 0 {
			return false
		}
	}
	return true
}

// Page is the populated modern page handed to the sink.
type Page struct {
	Name       string            `json:"name"`
	Folder     string            `json:"folder,omitempty"`
	Title      string            `json:"title,omitempty"`
	IsNews     bool              `json:"is_news,omitempty"`
	Header     map[string]string `json:"header,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Sections   []Section         `json:"sections"`
}

// NewPage returns an empty page shell.
func NewPage(name string) *Page {
	return &Page{
		Name:       name,
		Header:     map[string]string{},
		Properties: map[string]string{},
	}
}

// Path returns folder/name.
func (p *Page) Path() string {
	if p.Folder == "" {
		return p.Name
	}
	return strings.TrimSuffix(p.Folder, "/") + "/" + p.Name
}

// AddSection appends a section with len(layout.Factors()) empty columns and
// returns its index.
func (p *Page) AddSection(layout SectionLayout) int {
	factors := layout.Factors()
	cols := make([]Column, len(factors))
	for i, f := range factors {
		cols[i] = Column{Factor: f}
	}
	p.Sections = append(p.Sections, Section{
		Order:   len(p.Sections) + 1,
		Layout:  layout,
		Columns: cols,
	})
	return len(p.Sections) - 1
}

// Controls returns every control in section/column order.
func (p *Page) Controls() []Control {
	var out []Control
	for _, s := range p.Sections {
		for _, c := range s.Columns {
			out = append(out, c.Controls...)
		}
	}
	return out
}

// Renumber reassigns section order after removals.
func (p *Page) Renumber() {
	for i := range p.Sections {
		p.Sections[i].Order = i + 1
	}
}
