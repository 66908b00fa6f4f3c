package analyzer

import (
	"strings"

	"pagetransform/internal/model"
	"pagetransform/internal/source"
)

type zonePosition struct{ row, col int }

// zonePositions places well-known web part zones on the visual grid.
// Unknown zones land in the first body column.
var zonePositions = map[string]zonePosition{
	"header":            {1, 1},
	"top":               {1, 1},
	"topzone":           {1, 1},
	"titlebar":          {1, 1},
	"left":              {2, 1},
	"leftcolumn":        {2, 1},
	"row":               {2, 1},
	"body":              {2, 1},
	"main":              {2, 1},
	"center":            {2, 1},
	"middle":            {2, 2},
	"middlecolumn":      {2, 2},
	"centercolumn":      {2, 2},
	"centerleftcolumn":  {2, 2},
	"right":             {2, 3},
	"rightcolumn":       {2, 3},
	"centerrightcolumn": {2, 3},
	"footer":            {3, 1},
	"bottom":            {3, 1},
	"bottomzone":        {3, 1},
}

func zoneOf(zone string) zonePosition {
	if p, ok := zonePositions[strings.ToLower(strings.TrimSpace(zone))]; ok {
		return p
	}
	return zonePosition{2, 1}
}

func analyzeWebPartPage(rec source.Record, _ Options) (model.Analysis, error) {
	a := model.Analysis{Layout: model.LayoutWebPartFullPageVertical}
	p, ok := rec.(source.WebPartProvider)
	if !ok {
		return a, nil
	}

	bodyCols := map[int]bool{}
	header, footer := false, false
	for _, wp := range p.WebParts() {
		if strings.TrimSpace(wp.Type) == "" {
			continue
		}
		pos := zoneOf(wp.Zone)
		b := blockFromWebPart(wp)
		b.Row, b.Column, b.Order = pos.row, pos.col, wp.ZoneIndex
		a.Blocks = append(a.Blocks, b)

		switch pos.row {
		case 1:
			header = true
		case 3:
			footer = true
		default:
			bodyCols[pos.col] = true
		}
	}
	a.Layout = webPartLayout(header, footer, bodyCols)
	return a, nil
}

func webPartLayout(header, footer bool, cols map[int]bool) model.PageLayout {
	switch {
	case len(cols) >= 3:
		return model.LayoutWebPartHeaderFooter3Col
	case len(cols) == 2 && cols[1] && !cols[3]:
		if header && footer {
			return model.LayoutWebPartLeftColumnHeader
		}
		return model.LayoutWebPartHeaderLeftColumn
	case len(cols) == 2:
		return model.LayoutWebPartHeaderRightColumn
	}
	return model.LayoutWebPartFullPageVertical
}
