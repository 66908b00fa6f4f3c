package mapping

import "encoding/xml"

// Namespace is the only accepted XML namespace of a mapping definition.
const Namespace = "urn:pagetransform:mapping:2024"

// Definition is the serialized form of a mapping model (XML or JSON).
type Definition struct {
	XMLName     xml.Name        `xml:"PageTransformation" json:"-"`
	Namespace   string          `xml:"-" json:"namespace"`
	WebParts    []WebPartDef    `xml:"WebParts>WebPart" json:"web_parts"`
	PageLayouts []PageLayoutDef `xml:"PageLayouts>PageLayout" json:"page_layouts,omitempty"`
}

// WebPartDef maps one legacy block type.
type WebPartDef struct {
	Type     string       `xml:"Type,attr" json:"type"`
	Mappings []MappingDef `xml:"Mappings>Mapping" json:"mappings"`
}

// MappingDef is one alternative for a legacy type. Alternatives are
// evaluated in order; the first whose selector matches wins. An alternative
// without Selector always matches.
type MappingDef struct {
	Name string `xml:"Name,attr" json:"name,omitempty"`

	// Selector names a block property; SelectorValue, when set, must equal
	// it (case-insensitive). An empty SelectorValue only requires presence.
	Selector      string `xml:"Selector,attr" json:"selector,omitempty"`
	SelectorValue string `xml:"SelectorValue,attr" json:"selector_value,omitempty"`

	Default    bool   `xml:"Default,attr" json:"default,omitempty"`
	Skip       bool   `xml:"Skip,attr" json:"skip,omitempty"`
	TargetType string `xml:"TargetType,attr" json:"target_type"`

	Properties []PropertyDef `xml:"Property" json:"properties,omitempty"`
}

// PropertyDef is one property transform rule.
type PropertyDef struct {
	// Name is the source property. "@Payload" and "@Title" address the
	// block payload and title.
	Name   string `xml:"Name,attr" json:"name,omitempty"`
	Target string `xml:"Target,attr" json:"target"`
	Rule   string `xml:"Rule,attr" json:"rule"`
	Kind   string `xml:"Kind,attr" json:"kind,omitempty"`

	Value       string `xml:"Value,attr" json:"value,omitempty"`
	Pattern     string `xml:"Pattern,attr" json:"pattern,omitempty"`
	Replacement string `xml:"Replacement,attr" json:"replacement,omitempty"`
	As          string `xml:"As,attr" json:"as,omitempty"`
	Default     string `xml:"Default,attr" json:"default,omitempty"`
}

// PageLayoutDef maps a publishing page layout onto blocks.
type PageLayoutDef struct {
	Name   string `xml:"Name,attr" json:"name"`
	Layout string `xml:"Layout,attr" json:"layout"`

	Fields         []FieldDef        `xml:"Field" json:"fields,omitempty"`
	PageProperties []PagePropertyDef `xml:"PageProperty" json:"page_properties,omitempty"`
}

// FieldDef turns one publishing field into a block.
type FieldDef struct {
	Name       string `xml:"Name,attr" json:"name"`
	TargetType string `xml:"TargetType,attr" json:"target_type"`
	Property   string `xml:"Property,attr" json:"property,omitempty"`
	Row        int    `xml:"Row,attr" json:"row"`
	Column     int    `xml:"Column,attr" json:"column"`
	Order      int    `xml:"Order,attr" json:"order"`
}

// PagePropertyDef copies a publishing field into a page property.
type PagePropertyDef struct {
	Field  string `xml:"Field,attr" json:"field"`
	Target string `xml:"Target,attr" json:"target"`
	Kind   string `xml:"Kind,attr" json:"kind,omitempty"`
}

// Rule names.
const (
	RuleRename   = "rename"
	RuleRegex    = "regex"
	RuleConstant = "constant"
	RuleCoerce   = "coerce"
)

// Kind routes a mapped value through a resolver.
type Kind string

const (
	KindPlain     Kind = ""
	KindText      Kind = "text"
	KindHTML      Kind = "html"
	KindURL       Kind = "url"
	KindTaxonomy  Kind = "taxonomy"
	KindPrincipal Kind = "principal"
)

// Pseudo properties addressing block fields rather than raw properties.
const (
	PayloadProperty = "@Payload"
	TitleProperty   = "@Title"
)
