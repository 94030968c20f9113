package layout

import (
	"encoding/json"
	"fmt"
)

// ScreenConfig is the geometry-bearing subset of a panel's config payload.
type ScreenConfig struct {
	Kind Kind     `json:"kind"`
	Grid GridSpec `json:"grid"`
}

// DefaultGridSpec is the firmware default: a 2x2 board with no margins.
func DefaultGridSpec() GridSpec {
	return GridSpec{Rows: 2, Columns: 2}
}

// ParseScreenConfig extracts the layout style and grid geometry from a
// config payload body. Unknown fields are ignored; absent grid values take
// the firmware defaults. Only a body that fails to parse as JSON is an
// error.
func ParseScreenConfig(body string) (ScreenConfig, error) {
	var doc struct {
		LayoutType string `json:"layout_type"`
		Grid       *struct {
			Rows         *int `json:"rows"`
			Columns      *int `json:"columns"`
			TopMargin    *int `json:"top_margin"`
			BottomMargin *int `json:"bottom_margin"`
			LeftMargin   *int `json:"left_margin"`
			RightMargin  *int `json:"right_margin"`
			OuterPadding *int `json:"outer_padding"`
			InnerPadding *int `json:"inner_padding"`
		} `json:"lvgl_grid"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ScreenConfig{}, fmt.Errorf("parse screen config: %w", err)
	}

	sc := ScreenConfig{Kind: ParseKind(doc.LayoutType), Grid: DefaultGridSpec()}
	if g := doc.Grid; g != nil {
		if g.Rows != nil {
			sc.Grid.Rows = *g.Rows
		}
		if g.Columns != nil {
			sc.Grid.Columns = *g.Columns
		}
		if g.TopMargin != nil {
			sc.Grid.TopMargin = *g.TopMargin
		}
		if g.BottomMargin != nil {
			sc.Grid.BottomMargin = *g.BottomMargin
		}
		if g.LeftMargin != nil {
			sc.Grid.LeftMargin = *g.LeftMargin
		}
		if g.RightMargin != nil {
			sc.Grid.RightMargin = *g.RightMargin
		}
		if g.OuterPadding != nil {
			sc.Grid.OuterPadding = *g.OuterPadding
		}
		if g.InnerPadding != nil {
			sc.Grid.InnerPadding = *g.InnerPadding
		}
	}
	return sc, nil
}
