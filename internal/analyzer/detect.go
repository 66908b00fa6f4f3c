// Package analyzer detects the legacy page type and extracts its content
// into ordered blocks plus a layout tag.
package analyzer

import (
	"strings"

	"pagetransform/internal/model"
	"pagetransform/internal/source"
)

// Stored field names read by the analyzers.
const (
	FieldClientSideApplicationID = "ClientSideApplicationId"
	FieldPublishingPageLayout    = "PublishingPageLayout"
	FieldPublishingPageContent   = "PublishingPageContent"
	FieldPublishingPageImage     = "PublishingPageImage"
	FieldPublishingStartDate     = "PublishingStartDate"
	FieldPublishingExpiration    = "PublishingExpirationDate"
	FieldPostCategory            = "PostCategory"
	FieldBody                    = "Body"
	FieldWikiField               = source.WikiField
	FieldTitle                   = "Title"
	FieldAuthor                  = "Author"
	FieldEditor                  = "Editor"
	FieldCreated                 = "Created"
	FieldModified                = "Modified"
)

// ModernApplicationID marks pages that are already modern.
const ModernApplicationID = "b6917cb1-93a0-4b97-a84d-7cf49975d4ec"

type detectionRule struct {
	name  string
	typ   model.PageType
	match func(source.Record) bool
}

// detectionRules are evaluated in order; the first match wins. A publishing
// page also stores WikiField-like content fields, and blog posts carry a
// Body, so the more specific signals come first.
var detectionRules = []detectionRule{
	{name: "client side application", typ: model.PageTypeAlreadyModern, match: func(r source.Record) bool {
		v, _ := r.FieldValue(FieldClientSideApplicationID)
		return strings.EqualFold(strings.Trim(strings.TrimSpace(v), "{}"), ModernApplicationID)
	}},
	{name: "publishing page layout", typ: model.PageTypePublishing, match: func(r source.Record) bool {
		v, ok := r.FieldValue(FieldPublishingPageLayout)
		return ok && strings.TrimSpace(v) != ""
	}},
	{name: "post category", typ: model.PageTypeBlog, match: func(r source.Record) bool {
		_, ok := r.FieldValue(FieldPostCategory)
		return ok
	}},
	{name: "wiki field", typ: model.PageTypeWiki, match: func(r source.Record) bool {
		_, ok := r.FieldValue(FieldWikiField)
		return ok
	}},
	{name: "web parts", typ: model.PageTypeWebPart, match: func(r source.Record) bool {
		p, ok := r.(source.WebPartProvider)
		return ok && len(p.WebParts()) > 0
	}},
}

// Detect returns the page type of rec. Records matching no rule are plain
// ASPX pages.
func Detect(rec source.Record) model.PageType {
	if rec == nil {
		return model.PageTypeUnknown
	}
	for _, r := range detectionRules {
		if r.match(rec) {
			return r.typ
		}
	}
	return model.PageTypePlainASPX
}
