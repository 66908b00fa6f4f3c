package analyzer

import (
	"path"
	"strings"

	"pagetransform/internal/mapping"
	"pagetransform/internal/model"
	"pagetransform/internal/source"

	"github.com/PuerkitoBio/goquery"
)

// defaultPublishingLayout is used when the mapping model has no entry for
// the page's layout.
var defaultPublishingLayout = mapping.PageLayout{
	Name:   "default",
	Layout: model.LayoutOneColumn,
	Fields: []mapping.FieldDef{
		{Name: FieldPublishingPageImage, TargetType: model.BlockImage, Row: 1, Column: 1, Order: 1},
		{Name: FieldPublishingPageContent, TargetType: model.BlockText, Row: 1, Column: 1, Order: 2},
	},
}

// PageLayoutName returns the layout file name without extension from a
// PublishingPageLayout value ("/_catalogs/masterpage/ArticleLeft.aspx, Article").
func PageLayoutName(v string) string {
	u, _, _ := strings.Cut(v, ",")
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	leaf := path.Base(u)
	return strings.TrimSuffix(leaf, path.Ext(leaf))
}

func analyzePublishing(rec source.Record, opts Options) (model.Analysis, error) {
	v, _ := rec.FieldValue(FieldPublishingPageLayout)
	pl, ok := opts.Model.PageLayout(PageLayoutName(v))
	if !ok {
		pl = &defaultPublishingLayout
	}

	a := model.Analysis{Layout: pl.Layout}
	for i, f := range pl.Fields {
		val, ok := rec.FieldValue(f.Name)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		b := model.ContentBlock{
			ID:         "field-" + f.Name,
			Type:       f.TargetType,
			Row:        max(f.Row, 1),
			Column:     max(f.Column, 1),
			Order:      f.Order,
			Properties: map[string]string{f.Name: val},
			Payload:    val,
		}
		if b.Order == 0 {
			b.Order = i + 1
		}
		if f.Property != "" {
			b.Properties[f.Property] = val
		}
		if strings.EqualFold(f.TargetType, model.BlockImage) {
			addImageProperties(b.Properties, val)
		}
		a.Blocks = append(a.Blocks, b)
	}

	for _, f := range []string{FieldPublishingStartDate, FieldPublishingExpiration} {
		if val, ok := rec.FieldValue(f); ok && val != "" {
			a.PageProperties = append(a.PageProperties, model.PageProperty{Name: f, Value: val})
		}
	}
	for _, pp := range pl.PageProperties {
		if val, ok := rec.FieldValue(pp.Field); ok {
			a.PageProperties = append(a.PageProperties, model.PageProperty{Name: pp.Target, Value: val, Kind: string(pp.Kind)})
		}
	}
	return a, nil
}

// addImageProperties reads src/alt from an image field value stored as an
// <img> fragment.
func addImageProperties(props map[string]string, fragment string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return
	}
	img := doc.Find("img").First()
	if img.Length() == 0 {
		return
	}
	if v, ok := img.Attr("src"); ok {
		props["ImageUrl"] = v
	}
	if v, ok := img.Attr("alt"); ok {
		props["AlternativeText"] = v
	}
}

func analyzeBlog(rec source.Record, _ Options) (model.Analysis, error) {
	a := model.Analysis{Layout: model.LayoutOneColumn}
	body, ok := rec.FieldValue(FieldBody)
	if ok && strings.TrimSpace(body) != "" {
		a.Blocks = append(a.Blocks, model.ContentBlock{
			ID:      "field-" + FieldBody,
			Type:    model.BlockText,
			Row:     1,
			Column:  1,
			Order:   1,
			Payload: body,
		})
	}
	if v, ok := rec.FieldValue("PublishedDate"); ok && v != "" {
		a.PageProperties = append(a.PageProperties, model.PageProperty{Name: "PublishedDate", Value: v})
	}
	return a, nil
}
