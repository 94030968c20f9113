// Package layout computes render-ready geometry for panel screen previews.
// It is pure arithmetic: no rendering, no I/O, no retained state. Callers
// feed decoded readings plus the panel's declared geometry and get back a
// flat list of placed cells in device logical coordinates.
package layout

import (
	"fmt"
	"strings"

	"github.com/banshee-data/panel.preview/internal/payload"
)

// Kind selects the placement algorithm for a panel screen.
type Kind int

const (
	// Grid is the generic sensor-tile layout. The radio, plotter and astro
	// screen styles share its placement; only their chrome differs.
	Grid Kind = iota
	// Quad is the fixed-digit numeric display: every slot always renders,
	// missing readings show a blank glyph rather than a zero.
	Quad
	// Matrix is the four-line character display.
	Matrix
	// Custom panels draw themselves; no geometry is computed for them.
	Custom
)

func (k Kind) String() string {
	switch k {
	case Grid:
		return "grid"
	case Quad:
		return "quad"
	case Matrix:
		return "matrix"
	case Custom:
		return "custom"
	default:
		return "grid"
	}
}

// ParseKind maps a panel's declared layout style to a Kind. Unknown styles
// fall back to Grid so a panel with a newer firmware still previews.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quad":
		return Quad
	case "matrix":
		return Matrix
	case "custom":
		return Custom
	default:
		// grid, radio, plotter, astro and anything unrecognized
		return Grid
	}
}

// Size is a width/height pair in device logical pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) normalized() Size {
	if s.Width < 1 {
		s.Width = 1
	}
	if s.Height < 1 {
		s.Height = 1
	}
	return s
}

// GridSpec carries the grid geometry block from a panel's screen config.
// The zero value is valid; normalization clamps the cell counts.
type GridSpec struct {
	Rows         int `json:"rows"`
	Columns      int `json:"columns"`
	TopMargin    int `json:"top_margin"`
	BottomMargin int `json:"bottom_margin"`
	LeftMargin   int `json:"left_margin"`
	RightMargin  int `json:"right_margin"`
	OuterPadding int `json:"outer_padding"`
	InnerPadding int `json:"inner_padding"`
}

func (g GridSpec) normalized() GridSpec {
	if g.Rows < 1 {
		g.Rows = 1
	}
	if g.Columns < 1 {
		g.Columns = 1
	}
	return g
}

// Rect is a placement rectangle in device logical coordinates, pre-scaling.
type Rect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Cell is one placed slot of a computed layout. Reading is nil and
// Placeholder true for slots with no sample to show.
type Cell struct {
	Index       int              `json:"index"`
	Row         int              `json:"row"`
	Col         int              `json:"col"`
	Rect        Rect             `json:"rect"`
	Reading     *payload.Reading `json:"reading,omitempty"`
	Placeholder bool             `json:"placeholder,omitempty"`
	Text        string           `json:"text,omitempty"`
	FontScale   float64          `json:"font_scale,omitempty"`
}

// placeholderGlyph fills empty Quad slots. A non-breaking space keeps the
// slot visibly blank; rendering "0" there would read as a live sample.
const placeholderGlyph = "\u00A0"

// matrixLineCount is fixed by the character-matrix hardware.
const matrixLineCount = 4

// Compute places readings into cells for one screen. Cells never extend
// outside the canvas when margins and padding fit inside it; degenerate
// canvas dimensions are clamped to 1 rather than faulted.
func Compute(kind Kind, readings []payload.Reading, slots int, grid GridSpec, canvas Size) []Cell {
	grid = grid.normalized()
	canvas = canvas.normalized()

	switch kind {
	case Quad:
		return quadCells(readings, grid, canvas)
	case Matrix:
		return matrixCells(readings, canvas)
	case Custom:
		return nil
	default:
		return gridCells(readings, slots, grid, canvas)
	}
}

// gridCells walks slots row-major. With readings present it emits one cell
// per reading up to the slot count; with none it emits a full board of
// placeholders so the preview still shows the panel's shape.
func gridCells(readings []payload.Reading, slots int, grid GridSpec, canvas Size) []Cell {
	if slots <= 0 {
		return nil
	}

	slotW := (canvas.Width - grid.LeftMargin - grid.RightMargin) / grid.Columns
	slotH := (canvas.Height - grid.TopMargin - grid.BottomMargin) / grid.Rows
	cellW := maxInt(slotW-grid.OuterPadding, 0)
	cellH := maxInt(slotH-grid.OuterPadding, 0)

	count := slots
	if len(readings) > 0 && len(readings) < count {
		count = len(readings)
	}

	cells := make([]Cell, 0, count)
	for i := 0; i < count; i++ {
		row := i / grid.Columns
		col := i % grid.Columns
		c := Cell{
			Index: i,
			Row:   row,
			Col:   col,
			Rect: Rect{
				Top:    grid.TopMargin + row*slotH,
				Left:   grid.LeftMargin + col*slotW,
				Width:  cellW,
				Height: cellH,
			},
		}
		if i < len(readings) {
			c.Reading = &readings[i]
			c.Text = tileText(readings[i])
		} else {
			c.Placeholder = true
		}
		cells = append(cells, c)
	}
	return cells
}

// quadCells always emits rows*columns cells: the digit board renders every
// slot whether or not a sample arrived.
func quadCells(readings []payload.Reading, grid GridSpec, canvas Size) []Cell {
	cellW := canvas.Width / grid.Columns
	cellH := canvas.Height / grid.Rows
	font := 0.6 * float64(cellH)

	total := grid.Rows * grid.Columns
	cells := make([]Cell, 0, total)
	for i := 0; i < total; i++ {
		row := i / grid.Columns
		col := i % grid.Columns
		c := Cell{
			Index: i,
			Row:   row,
			Col:   col,
			Rect: Rect{
				Top:    row * cellH,
				Left:   col * cellW,
				Width:  cellW,
				Height: cellH,
			},
			FontScale: font,
		}
		if i < len(readings) {
			c.Reading = &readings[i]
			c.Text = fmt.Sprintf("%02d", payload.CoerceInt(readings[i].Value, 0))
		} else {
			c.Placeholder = true
			c.Text = placeholderGlyph
		}
		cells = append(cells, c)
	}
	return cells
}

// matrixCells emits the fixed four lines of the character display, each a
// full-width band.
func matrixCells(readings []payload.Reading, canvas Size) []Cell {
	lineH := canvas.Height / matrixLineCount
	font := 0.8 * float64(lineH)

	cells := make([]Cell, 0, matrixLineCount)
	for i := 0; i < matrixLineCount; i++ {
		c := Cell{
			Index: i,
			Row:   i,
			Rect: Rect{
				Top:    i * lineH,
				Width:  canvas.Width,
				Height: lineH,
			},
			FontScale: font,
		}
		if i < len(readings) {
			c.Reading = &readings[i]
			c.Text = lineText(readings[i])
		} else {
			c.Placeholder = true
		}
		cells = append(cells, c)
	}
	return cells
}

func tileText(r payload.Reading) string {
	return lineText(r)
}

// lineText renders "tag value unit" with the unit glued to the value the way
// the firmware prints it.
func lineText(r payload.Reading) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s%s", r.Tag, payload.ValueString(r.Value), r.Unit))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
