package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"pagetransform/internal/model"
	"pagetransform/internal/source"

	"github.com/PuerkitoBio/goquery"
)

// Wiki markup selectors.
const (
	selLayoutTable = "table#layoutsTable"
	selLayoutData  = "span#layoutsData"
	selZoneInner   = ".ms-rte-layoutszone-inner"
	selWebPartBox  = "div.ms-rte-wpbox"
)

func analyzeWiki(rec source.Record, opts Options) (model.Analysis, error) {
	a := model.Analysis{Layout: model.LayoutOneColumn}
	html, ok := rec.FieldValue(FieldWikiField)
	if !ok || strings.TrimSpace(html) == "" {
		return a, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return a, fmt.Errorf("parse wiki field: %w", err)
	}
	parts := webPartsByID(rec)

	table := doc.Find(selLayoutTable).First()
	if table.Length() == 0 {
		a.Blocks = wikiZone(unwrap(doc.Find("body").First()), 1, 1, parts, opts)
		return a, nil
	}

	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	a.Layout = wikiLayout(doc.Find(selLayoutData).First(), rows)

	rows.Each(func(r int, tr *goquery.Selection) {
		tr.ChildrenFiltered("td").Each(func(c int, td *goquery.Selection) {
			zone := td.Find(selZoneInner).First()
			if zone.Length() == 0 {
				zone = td
			}
			a.Blocks = append(a.Blocks, wikiZone(zone, r+1, c+1, parts, opts)...)
		})
	})
	return a, nil
}

// unwrap descends through single wrapper divs (ExternalClass containers)
// that hold all of the zone's content.
func unwrap(sel *goquery.Selection) *goquery.Selection {
	for {
		children := sel.Children()
		if children.Length() != 1 || !children.Is("div") || children.Is(selWebPartBox) {
			return sel
		}
		if strings.TrimSpace(sel.Text()) != strings.TrimSpace(children.Text()) {
			return sel
		}
		sel = children
	}
}

// wikiLayout reads the "header,footer,columns" layout data span, falling
// back to the table shape when the span is missing or malformed.
func wikiLayout(data *goquery.Selection, rows *goquery.Selection) model.PageLayout {
	header, footer, cols, ok := parseLayoutData(strings.TrimSpace(data.Text()))
	if !ok {
		header, footer, cols = tableShape(rows)
	}

	switch cols {
	case 2:
		if !header && !footer && sidebar(rows) {
			return model.LayoutOneColumnSideBar
		}
		switch {
		case header && footer:
			return model.LayoutTwoColumnsHeaderFooter
		case header:
			return model.LayoutTwoColumnsHeader
		}
		return model.LayoutTwoColumns
	case 3:
		switch {
		case header && footer:
			return model.LayoutThreeColumnsHeaderFooter
		case header:
			return model.LayoutThreeColumnsHeader
		}
		return model.LayoutThreeColumns
	}
	return model.LayoutOneColumn
}

func parseLayoutData(s string) (header, footer bool, cols int, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return false, false, 0, false
	}
	h, err1 := strconv.ParseBool(strings.TrimSpace(parts[0]))
	f, err2 := strconv.ParseBool(strings.TrimSpace(parts[1]))
	n, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil || n < 1 {
		return false, false, 0, false
	}
	return h, f, n, true
}

func tableShape(rows *goquery.Selection) (header, footer bool, cols int) {
	n := rows.Length()
	rows.Each(func(i int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td").Length()
		if tds > cols {
			cols = tds
		}
		if tds == 1 && n > 1 {
			if i == 0 {
				header = true
			} else if i == n-1 {
				footer = true
			}
		}
	})
	return header, footer, cols
}

// sidebar reports a two-column body whose first column is the wide one.
func sidebar(rows *goquery.Selection) bool {
	wide := false
	rows.Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() != 2 {
			return
		}
		if widthPercent(tds.First()) >= 60 {
			wide = true
		}
	})
	return wide
}

func widthPercent(td *goquery.Selection) float64 {
	style, _ := td.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		k, v, found := strings.Cut(decl, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(k), "width") {
			continue
		}
		v = strings.TrimSuffix(strings.TrimSpace(v), "%")
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func webPartsByID(rec source.Record) map[string]source.WebPart {
	p, ok := rec.(source.WebPartProvider)
	if !ok {
		return nil
	}
	out := make(map[string]source.WebPart)
	for _, wp := range p.WebParts() {
		out[normalizeID(wp.ID)] = wp
	}
	return out
}

// wikiZone splits one layout zone into text blocks and the web parts its
// boxes reference. Boxes referencing unknown web parts are dropped; the
// surrounding text is kept.
func wikiZone(zone *goquery.Selection, row, col int, parts map[string]source.WebPart, opts Options) []model.ContentBlock {
	var blocks []model.ContentBlock
	var text strings.Builder
	order := 0

	add := func(b model.ContentBlock) {
		order++
		b.Row, b.Column, b.Order = row, col, order
		if b.ID == "" {
			b.ID = fmt.Sprintf("wiki-%d-%d-%d", row, col, order)
		}
		blocks = append(blocks, b)
	}
	flush := func() {
		h := strings.TrimSpace(text.String())
		text.Reset()
		if h != "" {
			add(model.ContentBlock{Type: model.BlockText, Payload: h})
		}
	}
	box := func(s *goquery.Selection) (model.ContentBlock, bool) {
		wp, ok := parts[boxWebPartID(s)]
		if !ok {
			return model.ContentBlock{}, false
		}
		return blockFromWebPart(wp), true
	}

	zone.Contents().Each(func(_ int, n *goquery.Selection) {
		switch {
		case n.Is(selWebPartBox):
			flush()
			if b, ok := box(n); ok {
				add(b)
			}
		case n.Find(selWebPartBox).Length() > 0:
			var refs []model.ContentBlock
			n.Find(selWebPartBox).Each(func(_ int, s *goquery.Selection) {
				if b, ok := box(s); ok {
					refs = append(refs, b)
				}
			}).Remove()
			text.WriteString(outerHTML(n))
			flush()
			for _, b := range refs {
				add(b)
			}
		case opts.HandleWikiImagesAndVideos && standaloneMedia(n, "img"):
			flush()
			add(imageBlock(n))
		case opts.HandleWikiImagesAndVideos && standaloneMedia(n, "video, iframe"):
			flush()
			add(videoBlock(n))
		default:
			text.WriteString(outerHTML(n))
		}
	})
	flush()
	return blocks
}

// boxWebPartID extracts the web part id from a box's "div_<guid>" marker.
func boxWebPartID(box *goquery.Selection) string {
	id := ""
	box.Find("div[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		if strings.HasPrefix(v, "div_") {
			id = strings.TrimPrefix(v, "div_")
			return false
		}
		return true
	})
	return normalizeID(id)
}

func outerHTML(s *goquery.Selection) string {
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return h
}

// standaloneMedia reports whether n is, or only wraps, one element matching
// sel with no text around it.
func standaloneMedia(n *goquery.Selection, sel string) bool {
	if n.Is(sel) {
		return true
	}
	if goquery.NodeName(n) == "#text" {
		return false
	}
	return n.Find(sel).Length() == 1 && strings.TrimSpace(n.Text()) == "" && n.Find("img, video, iframe").Length() == 1
}

func mediaElement(n *goquery.Selection, sel string) *goquery.Selection {
	if n.Is(sel) {
		return n
	}
	return n.Find(sel).First()
}

func imageBlock(n *goquery.Selection) model.ContentBlock {
	img := mediaElement(n, "img")
	props := map[string]string{}
	if v, ok := img.Attr("src"); ok {
		props["ImageUrl"] = v
	}
	if v, ok := img.Attr("alt"); ok {
		props["AlternativeText"] = v
	}
	if a := img.Closest("a"); a.Length() > 0 {
		if v, ok := a.Attr("href"); ok {
			props["LinkUrl"] = v
		}
	}
	return model.ContentBlock{Type: model.BlockImage, Properties: props, Payload: outerHTML(n)}
}

func videoBlock(n *goquery.Selection) model.ContentBlock {
	v := mediaElement(n, "video, iframe")
	props := map[string]string{}
	src, ok := v.Attr("src")
	if !ok {
		src, _ = v.Find("source[src]").First().Attr("src")
	}
	if src != "" {
		props["VideoUrl"] = src
	}
	return model.ContentBlock{Type: model.BlockVideo, Properties: props, Payload: outerHTML(n)}
}
