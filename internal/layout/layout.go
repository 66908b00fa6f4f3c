// Package layout shapes the section/column structure of a target page from
// the detected legacy layout.
package layout

import (
	"errors"

	"pagetransform/internal/model"
	"pagetransform/internal/modern"
)

// Transformator creates the sections implied by a legacy layout on page.
// Callers may substitute their own implementation.
type Transformator interface {
	Transform(page *modern.Page, layout model.PageLayout, blocks []model.ContentBlock) error
}

// TransformatorFunc adapts a function to Transformator.
type TransformatorFunc func(page *modern.Page, layout model.PageLayout, blocks []model.ContentBlock) error

func (f TransformatorFunc) Transform(page *modern.Page, layout model.PageLayout, blocks []model.ContentBlock) error {
	return f(page, layout, blocks)
}

// templates lists one section per legacy row.
var templates = map[model.PageLayout][]modern.SectionLayout{
	model.LayoutOneColumn:                {modern.SectionOneColumn},
	model.LayoutOneColumnSideBar:         {modern.SectionTwoColumnLeft},
	model.LayoutTwoColumns:               {modern.SectionTwoColumn},
	model.LayoutTwoColumnsHeader:         {modern.SectionOneColumn, modern.SectionTwoColumn},
	model.LayoutTwoColumnsHeaderFooter:   {modern.SectionOneColumn, modern.SectionTwoColumn, modern.SectionOneColumn},
	model.LayoutThreeColumns:             {modern.SectionThreeColumn},
	model.LayoutThreeColumnsHeader:       {modern.SectionOneColumn, modern.SectionThreeColumn},
	model.LayoutThreeColumnsHeaderFooter: {modern.SectionOneColumn, modern.SectionThreeColumn, modern.SectionOneColumn},
	model.LayoutWebPartHeaderFooter3Col:  {modern.SectionOneColumn, modern.SectionThreeColumn, modern.SectionOneColumn},
	model.LayoutWebPartFullPageVertical:  {modern.SectionOneColumn, modern.SectionOneColumn, modern.SectionOneColumn},
	model.LayoutWebPartHeaderLeftColumn:  {modern.SectionOneColumn, modern.SectionTwoColumnRight, modern.SectionOneColumn},
	model.LayoutWebPartHeaderRightColumn: {modern.SectionOneColumn, modern.SectionTwoColumnLeft, modern.SectionOneColumn},
	model.LayoutWebPartLeftColumnHeader:  {modern.SectionOneColumn, modern.SectionTwoColumnRight, modern.SectionOneColumn},
}

// Default is the built-in Transformator. Layouts without a template
// (Publishing, Custom) are derived from the rows and columns the blocks
// occupy; so are rows beyond a template's last section.
type Default struct{}

func (Default) Transform(page *modern.Page, layout model.PageLayout, blocks []model.ContentBlock) error {
	if page == nil {
		return errors.New("layout: nil page")
	}
	for _, sl := range templates[layout] {
		page.AddSection(sl)
	}

	cols := columnsPerRow(blocks)
	for row := len(page.Sections) + 1; row <= len(cols); row++ {
		page.AddSection(modern.LayoutForColumns(cols[row-1]))
	}
	if len(page.Sections) == 0 {
		page.AddSection(modern.SectionOneColumn)
	}
	return nil
}

// columnsPerRow returns, for rows 1..max, the number of distinct columns
// used. Rows without blocks count as one column.
func columnsPerRow(blocks []model.ContentBlock) []int {
	used := map[int]map[int]bool{}
	maxRow := 0
	for _, b := range blocks {
		r := max(b.Row, 1)
		if used[r] == nil {
			used[r] = map[int]bool{}
		}
		used[r][max(b.Column, 1)] = true
		maxRow = max(maxRow, r)
	}
	out := make([]int, maxRow)
	for r := 1; r <= maxRow; r++ {
		out[r-1] = max(len(used[r]), 1)
	}
	return out
}

var _ Transformator = Default{}
