// Package source reads exported legacy pages: one JSON document per page
// holding its stored fields and web parts.
package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cast"
)

// Record gives access to the stored fields of a legacy page. A field that
// is absent returns ok=false; a present empty field returns "", true.
type Record interface {
	FieldValue(name string) (string, bool)
}

// WebPartProvider is implemented by records that carry web part instances.
type WebPartProvider interface {
	WebParts() []WebPart
}

// WebPart is one exported web part instance.
type WebPart struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Title      string            `json:"title,omitempty"`
	Zone       string            `json:"zone,omitempty"`
	ZoneIndex  int               `json:"zone_index,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Payload    string            `json:"payload,omitempty"`
	Closed     bool              `json:"closed,omitempty"`
	Hidden     bool              `json:"hidden,omitempty"`
}

// Page is the export format of one legacy page.
//
//	{"name": "Home.aspx", "folder": "news", "fields": {"WikiField": "..."}, "web_parts": [...]}
//
// Field values may be any JSON scalar; null counts as absent.
type Page struct {
	Name   string         `json:"name"`
	Folder string         `json:"folder,omitempty"`
	Fields map[string]any `json:"fields"`
	Parts  []WebPart      `json:"web_parts,omitempty"`

	// SourceFile is the file the page was read from, if any.
	SourceFile string `json:"-"`
}

func (p *Page) FieldValue(name string) (string, bool) {
	if p == nil || p.Fields == nil {
		return "", false
	}
	v, ok := p.Fields[name]
	if !ok || v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return s, true
}

func (p *Page) WebParts() []WebPart {
	if p == nil {
		return nil
	}
	return p.Parts
}

// ID identifies the page in logs and results: folder and name joined.
func (p *Page) ID() string {
	if p == nil {
		return ""
	}
	if p.Folder == "" {
		return p.Name
	}
	return path.Join(strings.Trim(p.Folder, "/"), p.Name)
}

var (
	_ Record          = (*Page)(nil)
	_ WebPartProvider = (*Page)(nil)
)
