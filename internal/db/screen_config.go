package db

import (
	"database/sql"
	"fmt"
)

// ScreenConfigRow is one archived config payload as a panel announced it.
// The raw body is kept verbatim so geometry changes can be replayed and
// diffed after firmware updates.
type ScreenConfigRow struct {
	ID         int64  `json:"id"`
	PanelID    string `json:"panel_id"`
	LayoutType string `json:"layout_type"`
	Raw        string `json:"raw"`
	CreatedAt  int64  `json:"created_at"`
}

// RecordScreenConfig archives a config payload for a panel.
func (db *DB) RecordScreenConfig(panelID, layoutType, raw string) error {
	_, err := db.Exec(`INSERT INTO screen_configs (panel_id, layout_type, raw)
		VALUES (?, ?, ?)`, panelID, layoutType, raw)
	if err != nil {
		return fmt.Errorf("failed to record screen config: %w", err)
	}
	return nil
}

// LatestScreenConfig returns the most recent config payload for a panel, or
// nil when the panel has never announced one.
func (db *DB) LatestScreenConfig(panelID string) (*ScreenConfigRow, error) {
	var row ScreenConfigRow
	err := db.QueryRow(`SELECT id, panel_id, layout_type, raw, created_at
		FROM screen_configs
		WHERE panel_id = ?
		ORDER BY id DESC
		LIMIT 1`, panelID).Scan(&row.ID, &row.PanelID, &row.LayoutType, &row.Raw, &row.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest screen config: %w", err)
	}
	return &row, nil
}

// ScreenConfigHistory returns up to limit archived configs, newest first.
func (db *DB) ScreenConfigHistory(panelID string, limit int) ([]ScreenConfigRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT id, panel_id, layout_type, raw, created_at
		FROM screen_configs
		WHERE panel_id = ?
		ORDER BY id DESC
		LIMIT ?`, panelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screen configs: %w", err)
	}
	defer rows.Close()

	var out []ScreenConfigRow
	for rows.Next() {
		var row ScreenConfigRow
		if err := rows.Scan(&row.ID, &row.PanelID, &row.LayoutType, &row.Raw, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan screen config: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
