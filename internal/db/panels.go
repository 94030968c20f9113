package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/panel.preview/internal/layout"
)

// Panel is one registered display panel: its identity, canvas dimensions and
// the last grid geometry it announced.
type Panel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	LayoutType   string `json:"layout_type"`
	Rows         int    `json:"rows"`
	Columns      int    `json:"columns"`
	TopMargin    int    `json:"top_margin"`
	BottomMargin int    `json:"bottom_margin"`
	LeftMargin   int    `json:"left_margin"`
	RightMargin  int    `json:"right_margin"`
	OuterPadding int    `json:"outer_padding"`
	InnerPadding int    `json:"inner_padding"`
	ShowPreview  bool   `json:"show_preview"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Kind maps the panel's declared layout style onto a placement algorithm.
func (p *Panel) Kind() layout.Kind {
	return layout.ParseKind(p.LayoutType)
}

// GridSpec assembles the panel's stored geometry for the layout engine.
func (p *Panel) GridSpec() layout.GridSpec {
	return layout.GridSpec{
		Rows:         p.Rows,
		Columns:      p.Columns,
		TopMargin:    p.TopMargin,
		BottomMargin: p.BottomMargin,
		LeftMargin:   p.LeftMargin,
		RightMargin:  p.RightMargin,
		OuterPadding: p.OuterPadding,
		InnerPadding: p.InnerPadding,
	}
}

// CanvasSize returns the panel's logical canvas.
func (p *Panel) CanvasSize() layout.Size {
	return layout.Size{Width: p.Width, Height: p.Height}
}

const panelColumns = `id, name, model, width, height, layout_type, rows, columns,
	top_margin, bottom_margin, left_margin, right_margin, outer_padding, inner_padding,
	show_preview, created_at, updated_at`

func scanPanel(row interface{ Scan(...any) error }) (*Panel, error) {
	var p Panel
	var showPreview int
	err := row.Scan(&p.ID, &p.Name, &p.Model, &p.Width, &p.Height, &p.LayoutType,
		&p.Rows, &p.Columns, &p.TopMargin, &p.BottomMargin, &p.LeftMargin,
		&p.RightMargin, &p.OuterPadding, &p.InnerPadding, &showPreview,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ShowPreview = showPreview == 1
	return &p, nil
}

// ListPanels returns all registered panels, oldest first.
func (db *DB) ListPanels() ([]Panel, error) {
	rows, err := db.Query(`SELECT ` + panelColumns + ` FROM panels ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query panels: %w", err)
	}
	defer rows.Close()

	var panels []Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return panels, nil
}

// GetPanel returns a panel by ID, or nil when it does not exist.
func (db *DB) GetPanel(id string) (*Panel, error) {
	p, err := scanPanel(db.QueryRow(`SELECT `+panelColumns+` FROM panels WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get panel: %w", err)
	}
	return p, nil
}

// GetPanelByName returns a panel by its unique name, or nil when missing.
func (db *DB) GetPanelByName(name string) (*Panel, error) {
	p, err := scanPanel(db.QueryRow(`SELECT `+panelColumns+` FROM panels WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get panel by name: %w", err)
	}
	return p, nil
}

// CreatePanel inserts a panel, assigning an ID and timestamps when unset.
func (db *DB) CreatePanel(p *Panel) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	showPreview := 0
	if p.ShowPreview {
		showPreview = 1
	}

	_, err := db.Exec(`INSERT INTO panels (`+panelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Model, p.Width, p.Height, p.LayoutType,
		p.Rows, p.Columns, p.TopMargin, p.BottomMargin, p.LeftMargin,
		p.RightMargin, p.OuterPadding, p.InnerPadding, showPreview,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create panel: %w", err)
	}
	return nil
}

// UpdatePanel rewrites a panel's mutable fields.
func (db *DB) UpdatePanel(p *Panel) error {
	p.UpdatedAt = time.Now().Unix()

	showPreview := 0
	if p.ShowPreview {
		showPreview = 1
	}

	result, err := db.Exec(`UPDATE panels
		SET name = ?, model = ?, width = ?, height = ?, layout_type = ?,
		    rows = ?, columns = ?, top_margin = ?, bottom_margin = ?,
		    left_margin = ?, right_margin = ?, outer_padding = ?, inner_padding = ?,
		    show_preview = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Model, p.Width, p.Height, p.LayoutType,
		p.Rows, p.Columns, p.TopMargin, p.BottomMargin,
		p.LeftMargin, p.RightMargin, p.OuterPadding, p.InnerPadding,
		showPreview, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update panel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("panel with ID %s not found", p.ID)
	}
	return nil
}

// UpdatePanelGrid stores the geometry a panel just announced over the tether
// or via a config push.
func (db *DB) UpdatePanelGrid(id string, layoutType string, g layout.GridSpec) error {
	result, err := db.Exec(`UPDATE panels
		SET layout_type = ?, rows = ?, columns = ?, top_margin = ?, bottom_margin = ?,
		    left_margin = ?, right_margin = ?, outer_padding = ?, inner_padding = ?,
		    updated_at = ?
		WHERE id = ?`,
		layoutType, g.Rows, g.Columns, g.TopMargin, g.BottomMargin,
		g.LeftMargin, g.RightMargin, g.OuterPadding, g.InnerPadding,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update panel grid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("panel with ID %s not found", id)
	}
	return nil
}

// SetShowPreview flips a panel's live preview preference.
func (db *DB) SetShowPreview(id string, show bool) error {
	showPreview := 0
	if show {
		showPreview = 1
	}
	result, err := db.Exec(`UPDATE panels SET show_preview = ?, updated_at = ? WHERE id = ?`,
		showPreview, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set preview preference: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("panel with ID %s not found", id)
	}
	return nil
}

// UpsertPanelByName inserts a panel or, when the name is already registered,
// updates its canvas and geometry in place. Used by inventory sync, which
// matches on name so re-running a sync is safe.
func (db *DB) UpsertPanelByName(p *Panel) error {
	existing, err := db.GetPanelByName(p.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.CreatePanel(p)
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return db.UpdatePanel(p)
}

// DeletePanel removes a panel; its screen-config history cascades away.
func (db *DB) DeletePanel(id string) error {
	result, err := db.Exec(`DELETE FROM panels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete panel: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("panel with ID %s not found", id)
	}
	return nil
}
