// Package inventory loads the declarative panel fleet definition used to
// seed the registry at boot. The file is YAML so a fleet of panels can live
// in version control next to the firmware configs.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/panel.preview/internal/db"
	"github.com/banshee-data/panel.preview/internal/layout"
)

// GridBlock mirrors the lvgl_grid geometry block in panel terms.
type GridBlock struct {
	Rows         int `yaml:"rows"`
	Columns      int `yaml:"columns"`
	TopMargin    int `yaml:"top_margin"`
	BottomMargin int `yaml:"bottom_margin"`
	LeftMargin   int `yaml:"left_margin"`
	RightMargin  int `yaml:"right_margin"`
	OuterPadding int `yaml:"outer_padding"`
	InnerPadding int `yaml:"inner_padding"`
}

// PanelSpec is one declared panel.
type PanelSpec struct {
	Name        string     `yaml:"name"`
	Model       string     `yaml:"model"`
	Width       int        `yaml:"width"`
	Height      int        `yaml:"height"`
	Layout      string     `yaml:"layout"`
	Grid        *GridBlock `yaml:"grid"`
	ShowPreview *bool      `yaml:"show_preview"`
}

// Inventory is the top-level document.
type Inventory struct {
	Panels []PanelSpec `yaml:"panels"`
}

// maxFileSize bounds the inventory file read (1MB).
const maxFileSize = 1 * 1024 * 1024

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("inventory file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat inventory file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("inventory file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory YAML: %w", err)
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Validate checks every declared panel for the fields sync needs.
func (inv *Inventory) Validate() error {
	seen := make(map[string]bool)
	for i, spec := range inv.Panels {
		if spec.Name == "" {
			return fmt.Errorf("panel %d: name is required", i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("panel %d: duplicate name %q", i, spec.Name)
		}
		seen[spec.Name] = true
		if spec.Width < 0 || spec.Height < 0 {
			return fmt.Errorf("panel %q: dimensions must be non-negative", spec.Name)
		}
	}
	return nil
}

// panel converts a spec into a registry row, filling firmware defaults.
func (spec PanelSpec) panel() *db.Panel {
	grid := layout.DefaultGridSpec()
	if g := spec.Grid; g != nil {
		grid = layout.GridSpec{
			Rows:         g.Rows,
			Columns:      g.Columns,
			TopMargin:    g.TopMargin,
			BottomMargin: g.BottomMargin,
			LeftMargin:   g.LeftMargin,
			RightMargin:  g.RightMargin,
			OuterPadding: g.OuterPadding,
			InnerPadding: g.InnerPadding,
		}
		if grid.Rows == 0 {
			grid.Rows = layout.DefaultGridSpec().Rows
		}
		if grid.Columns == 0 {
			grid.Columns = layout.DefaultGridSpec().Columns
		}
	}

	show := true
	if spec.ShowPreview != nil {
		show = *spec.ShowPreview
	}

	// Normalize the declared layout through the same mapping the engine
	// uses so the registry never stores a style it cannot place.
	kind := layout.ParseKind(spec.Layout)

	return &db.Panel{
		Name:         spec.Name,
		Model:        spec.Model,
		Width:        spec.Width,
		Height:       spec.Height,
		LayoutType:   kind.String(),
		Rows:         grid.Rows,
		Columns:      grid.Columns,
		TopMargin:    grid.TopMargin,
		BottomMargin: grid.BottomMargin,
		LeftMargin:   grid.LeftMargin,
		RightMargin:  grid.RightMargin,
		OuterPadding: grid.OuterPadding,
		InnerPadding: grid.InnerPadding,
		ShowPreview:  show,
	}
}

// Sync upserts every declared panel into the registry, matching on name.
// Returns the number of panels written. Panels in the registry but not in
// the file are left alone; the inventory declares, it does not prune.
func Sync(database *db.DB, inv *Inventory) (int, error) {
	n := 0
	for _, spec := range inv.Panels {
		if err := database.UpsertPanelByName(spec.panel()); err != nil {
			return n, fmt.Errorf("failed to sync panel %q: %w", spec.Name, err)
		}
		n++
	}
	return n, nil
}
