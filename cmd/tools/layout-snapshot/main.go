// Package main renders a PNG wireframe of the preview geometry a panel would
// draw for a given layout and payload. It is the quickest way to eyeball a
// grid or quad configuration without flashing a panel or running the server.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/panel.preview/internal/layout"
	"github.com/banshee-data/panel.preview/internal/payload"
	"github.com/banshee-data/panel.preview/internal/security"
)

var (
	layoutType = flag.String("layout", "grid", "Layout type: grid, quad, matrix or custom")
	width      = flag.Int("width", 800, "Canvas width in pixels")
	height     = flag.Int("height", 480, "Canvas height in pixels")
	rows       = flag.Int("rows", 2, "Grid rows")
	cols       = flag.Int("cols", 2, "Grid columns")
	margin     = flag.Int("margin", 0, "Uniform outer margin in pixels")
	padding    = flag.Int("padding", 0, "Inner padding between cells in pixels")
	slots      = flag.Int("slots", 0, "Minimum slot count (0 uses the layout default)")
	fixture    = flag.String("payload", "", "Raw payload fixture file to populate the cells (empty renders placeholders)")
	out        = flag.String("out", "layout.png", "Output PNG path")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Layout Snapshot Tool\n\n")
		fmt.Fprintf(os.Stderr, "Computes the cell rectangles for a panel layout and writes a PNG\n")
		fmt.Fprintf(os.Stderr, "wireframe. Pass -payload to fill the cells from a captured frame.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := security.ValidateExportPath(*out); err != nil {
		log.Fatalf("Invalid output path: %v", err)
	}

	var readings []payload.Reading
	if *fixture != "" {
		data, err := os.ReadFile(*fixture)
		if err != nil {
			log.Fatalf("Failed to read payload fixture: %v", err)
		}
		result := payload.DecodeRaw(string(data))
		if result.Condition != payload.CondOK {
			log.Printf("fixture decoded with condition %s; rendering what came out", result.Condition)
		}
		readings = result.Readings
	}

	kind := layout.ParseKind(*layoutType)
	canvas := layout.Size{Width: *width, Height: *height}
	grid := layout.GridSpec{
		Rows:         *rows,
		Columns:      *cols,
		TopMargin:    *margin,
		BottomMargin: *margin,
		LeftMargin:   *margin,
		RightMargin:  *margin,
		OuterPadding: *padding,
		InnerPadding: *padding,
	}

	cells := layout.Compute(kind, readings, *slots, grid, canvas)
	if err := renderWireframe(cells, kind, canvas, *out); err != nil {
		log.Fatalf("Failed to render wireframe: %v", err)
	}
	fmt.Printf("Wrote %s: %s layout, %d cell(s) on %dx%d\n",
		*out, kind, len(cells), canvas.Width, canvas.Height)
}

// renderWireframe draws each cell rectangle and its label onto a plot sized
// like the panel canvas. Panel coordinates grow downward, so Y is flipped
// into plot space.
func renderWireframe(cells []layout.Cell, kind layout.Kind, canvas layout.Size, outPath string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s layout %dx%d", kind, canvas.Width, canvas.Height)
	p.X.Label.Text = "px"
	p.Y.Label.Text = "px"
	p.X.Min, p.X.Max = 0, float64(canvas.Width)
	p.Y.Min, p.Y.Max = 0, float64(canvas.Height)

	// Canvas border
	if err := addRect(p, 0, 0, canvas.Width, canvas.Height, canvas, color.Gray{Y: 0x60}); err != nil {
		return err
	}

	labels := plotter.XYLabels{}
	for _, cell := range cells {
		c := color.RGBA{R: 0x20, G: 0x80, B: 0x40, A: 0xff}
		if cell.Placeholder {
			c = color.RGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}
		}
		r := cell.Rect
		if err := addRect(p, r.Left, r.Top, r.Width, r.Height, canvas, c); err != nil {
			return err
		}

		label := cell.Text
		if label == "" && cell.Reading != nil {
			label = cell.Reading.Tag
		}
		if label != "" {
			labels.XYs = append(labels.XYs, plotter.XY{
				X: float64(r.Left) + float64(r.Width)/2,
				Y: float64(canvas.Height-r.Top) - float64(r.Height)/2,
			})
			labels.Labels = append(labels.Labels, label)
		}
	}

	if len(labels.Labels) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("build labels: %w", err)
		}
		p.Add(l)
	}

	aspect := float64(canvas.Height) / float64(canvas.Width)
	w := 10 * vg.Inch
	if err := p.Save(w, vg.Length(float64(w)*aspect), outPath); err != nil {
		return fmt.Errorf("save wireframe: %w", err)
	}
	return nil
}

// addRect adds a closed rectangle outline in panel coordinates (top-left
// origin, Y down) to the plot (bottom-left origin, Y up).
func addRect(p *plot.Plot, left, top, width, height int, canvas layout.Size, c color.Color) error {
	yTop := float64(canvas.Height - top)
	yBot := float64(canvas.Height - (top + height))
	x0, x1 := float64(left), float64(left+width)

	line, err := plotter.NewLine(plotter.XYs{
		{X: x0, Y: yTop},
		{X: x1, Y: yTop},
		{X: x1, Y: yBot},
		{X: x0, Y: yBot},
		{X: x0, Y: yTop},
	})
	if err != nil {
		return fmt.Errorf("build rect: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	return nil
}
