// Package model holds the intermediate representation produced by the page
// analyzers: content blocks and the detected legacy layout.
package model

import "sort"

// PageType is the detected legacy page family.
type PageType string

const (
	PageTypeWiki          PageType = "Wiki"
	PageTypeWebPart       PageType = "WebPart"
	PageTypePublishing    PageType = "Publishing"
	PageTypeBlog          PageType = "Blog"
	PageTypeAlreadyModern PageType = "AlreadyModern"
	PageTypePlainASPX     PageType = "PlainAspx"
	PageTypeUnknown       PageType = ""
)

// Rejected reports whether pages of this type cannot be transformed.
func (t PageType) Rejected() bool {
	switch t {
	case PageTypeAlreadyModern, PageTypePlainASPX, PageTypeUnknown:
		return true
	}
	return false
}

// PageLayout tags the legacy structural layout of a page.
type PageLayout string

const (
	LayoutOneColumn                PageLayout = "OneColumn"
	LayoutOneColumnSideBar         PageLayout = "OneColumnSideBar"
	LayoutTwoColumns               PageLayout = "TwoColumns"
	LayoutTwoColumnsHeader         PageLayout = "TwoColumnsHeader"
	LayoutTwoColumnsHeaderFooter   PageLayout = "TwoColumnsHeaderFooter"
	LayoutThreeColumns             PageLayout = "ThreeColumns"
	LayoutThreeColumnsHeader       PageLayout = "ThreeColumnsHeader"
	LayoutThreeColumnsHeaderFooter PageLayout = "ThreeColumnsHeaderFooter"
	LayoutWebPartHeaderFooter3Col  PageLayout = "WebPartHeaderFooterThreeColumns"
	LayoutWebPartFullPageVertical  PageLayout = "WebPartFullPageVertical"
	LayoutWebPartHeaderLeftColumn  PageLayout = "WebPartHeaderLeftColumnBody"
	LayoutWebPartHeaderRightColumn PageLayout = "WebPartHeaderRightColumnBody"
	LayoutWebPartLeftColumnHeader  PageLayout = "WebPartLeftColumnHeaderFooterTopRow3Columns"
	LayoutPublishing               PageLayout = "Publishing"
	LayoutCustom                   PageLayout = "Custom"
)

// Well-known block types produced by the analyzers themselves. Web parts
// keep their legacy type name.
const (
	BlockText  = "Text"
	BlockImage = "Image"
	BlockVideo = "Video"
)

// ContentBlock is one legacy content unit.
type ContentBlock struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`

	// Row (section), Column and Order are 1-based positions in the legacy
	// visual layout.
	Row    int `json:"row"`
	Column int `json:"column"`
	Order  int `json:"order"`

	Properties map[string]string `json:"properties,omitempty"`
	Payload    string            `json:"payload,omitempty"`

	// Closed blocks are excluded from transformation.
	Closed bool `json:"closed,omitempty"`
	Hidden bool `json:"hidden,omitempty"`
}

// Property returns the named property or "".
func (b ContentBlock) Property(name string) string {
	if b.Properties == nil {
		return ""
	}
	return b.Properties[name]
}

// SortVisual orders blocks by (row, column, order). The sort is stable, so
// blocks with equal positions keep their extraction order.
func SortVisual(blocks []ContentBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Order < b.Order
	})
}

// Open returns the blocks that are not closed, preserving order.
func Open(blocks []ContentBlock) []ContentBlock {
	out := make([]ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if !b.Closed {
			out = append(out, b)
		}
	}
	return out
}

// Analysis is the analyzer output for one page.
type Analysis struct {
	Type   PageType       `json:"type"`
	Layout PageLayout     `json:"layout"`
	Blocks []ContentBlock `json:"blocks"`

	// PageProperties are page-level values harvested from source fields,
	// in harvest order.
	PageProperties []PageProperty `json:"page_properties,omitempty"`
}

// PageProperty is one page-level value. Kind names the resolver its value
// goes through ("principal", "taxonomy", "url", "text", "html" or "").
type PageProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Kind  string `json:"kind,omitempty"`
}

// Property returns the value of the first page property named name.
func (a Analysis) Property(name string) (string, bool) {
	for _, p := range a.PageProperties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
