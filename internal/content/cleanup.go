package content

import (
	"strings"

	"pagetransform/internal/modern"

	"github.com/PuerkitoBio/goquery"
)

// CleanupStats counts what Cleanup removed.
type CleanupStats struct {
	Controls int
	Columns  int
	Sections int
}

// mediaSelector matches elements that make otherwise text-less markup
// meaningful.
const mediaSelector = "img, iframe, video, audio, object, embed"

// Cleanup removes text controls holding only whitespace, then (when
// removeEmpty is set) sections without controls and empty columns of the
// remaining sections. A section that loses columns gets the even layout
// for its remaining column count.
func Cleanup(page *modern.Page, removeEmpty bool) CleanupStats {
	var st CleanupStats
	if page == nil {
		return st
	}

	for si := range page.Sections {
		for ci := range page.Sections[si].Columns {
			col := &page.Sections[si].Columns[ci]
			kept := col.Controls[:0]
			for _, c := range col.Controls {
				if c.IsText() && BlankHTML(c.Text) {
					st.Controls++
					continue
				}
				kept = append(kept, c)
			}
			col.Controls = kept
			for i := range col.Controls {
				col.Controls[i].Order = i + 1
			}
		}
	}
	if !removeEmpty {
		return st
	}

	sections := page.Sections[:0]
	for _, s := range page.Sections {
		if s.Empty() {
			st.Sections++
			continue
		}
		cols := s.Columns[:0]
		for _, c := range s.Columns {
			if len(c.Controls) == 0 {
				st.Columns++
				continue
			}
			cols = append(cols, c)
		}
		if len(cols) != len(s.Layout.Factors()) {
			s.Layout = modern.LayoutForColumns(len(cols))
			for i, f := range s.Layout.Factors() {
				if i < len(cols) {
					cols[i].Factor = f
				}
			}
		}
		s.Columns = cols
		sections = append(sections, s)
	}
	page.Sections = sections
	page.Renumber()
	return st
}

// BlankHTML reports whether markup renders no text and no media. Non
// breaking spaces count as whitespace.
func BlankHTML(markup string) bool {
	if strings.TrimSpace(markup) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	if doc.Find(mediaSelector).Length() > 0 {
		return false
	}
	text := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	text = strings.ReplaceAll(text, "\u200b", "")
	return strings.TrimSpace(text) == ""
}
