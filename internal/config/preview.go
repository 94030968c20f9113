// Package config holds the tunable defaults for the preview engine, loaded
// from JSON at startup. Pointer fields distinguish "unset" from zero so a
// partial config file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical preview defaults file.
// This is the single source of truth for all default preview values.
const DefaultConfigPath = "config/preview.defaults.json"

// PreviewConfig represents the root configuration for the preview engine.
// The schema matches what the dashboard sends for runtime updates, so the
// same JSON serves startup configuration and live retuning.
type PreviewConfig struct {
	// Reference canvas the dashboard renders into.
	ReferenceWidth  *int `json:"reference_width,omitempty"`
	ReferenceHeight *int `json:"reference_height,omitempty"`

	// Grid defaults applied when a panel has not announced its geometry.
	DefaultRows    *int `json:"default_rows,omitempty"`
	DefaultColumns *int `json:"default_columns,omitempty"`
	DefaultSlots   *int `json:"default_slots,omitempty"`

	// History sampling
	HistoryPoints *int `json:"history_points,omitempty"`

	// Live preview streaming
	ShowPreview    *bool   `json:"show_preview,omitempty"`
	StreamInterval *string `json:"stream_interval,omitempty"` // duration string like "250ms"
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyPreviewConfig returns a PreviewConfig with all fields set to nil.
// Use LoadPreviewConfig to load actual values from the defaults file.
func EmptyPreviewConfig() *PreviewConfig {
	return &PreviewConfig{}
}

// DefaultPreviewConfig returns a fully populated config mirroring the
// built-in defaults. Mostly useful in tests and for writing a starter
// defaults file.
func DefaultPreviewConfig() *PreviewConfig {
	return &PreviewConfig{
		ReferenceWidth:  ptrInt(800),
		ReferenceHeight: ptrInt(480),
		DefaultRows:     ptrInt(2),
		DefaultColumns:  ptrInt(2),
		DefaultSlots:    ptrInt(4),
		HistoryPoints:   ptrInt(100),
		ShowPreview:     ptrBool(true),
		StreamInterval:  ptrString("250ms"),
	}
}

// LoadPreviewConfig loads a PreviewConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file fall back to the built-in
// defaults, so partial configs are safe.
func LoadPreviewConfig(path string) (*PreviewConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyPreviewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *PreviewConfig) Validate() error {
	if c.ReferenceWidth != nil && *c.ReferenceWidth < 1 {
		return fmt.Errorf("reference_width must be positive, got %d", *c.ReferenceWidth)
	}
	if c.ReferenceHeight != nil && *c.ReferenceHeight < 1 {
		return fmt.Errorf("reference_height must be positive, got %d", *c.ReferenceHeight)
	}
	if c.DefaultRows != nil && *c.DefaultRows < 1 {
		return fmt.Errorf("default_rows must be positive, got %d", *c.DefaultRows)
	}
	if c.DefaultColumns != nil && *c.DefaultColumns < 1 {
		return fmt.Errorf("default_columns must be positive, got %d", *c.DefaultColumns)
	}
	if c.DefaultSlots != nil && *c.DefaultSlots < 0 {
		return fmt.Errorf("default_slots must be non-negative, got %d", *c.DefaultSlots)
	}
	if c.HistoryPoints != nil && *c.HistoryPoints < 1 {
		return fmt.Errorf("history_points must be positive, got %d", *c.HistoryPoints)
	}
	if c.StreamInterval != nil && *c.StreamInterval != "" {
		if _, err := time.ParseDuration(*c.StreamInterval); err != nil {
			return fmt.Errorf("invalid stream_interval '%s': %w", *c.StreamInterval, err)
		}
	}
	return nil
}

// GetReferenceWidth returns the reference canvas width or the default.
func (c *PreviewConfig) GetReferenceWidth() int {
	if c.ReferenceWidth == nil {
		return 800 // default
	}
	return *c.ReferenceWidth
}

// GetReferenceHeight returns the reference canvas height or the default.
func (c *PreviewConfig) GetReferenceHeight() int {
	if c.ReferenceHeight == nil {
		return 480 // default
	}
	return *c.ReferenceHeight
}

// GetDefaultRows returns the default grid row count.
func (c *PreviewConfig) GetDefaultRows() int {
	if c.DefaultRows == nil {
		return 2 // default
	}
	return *c.DefaultRows
}

// GetDefaultColumns returns the default grid column count.
func (c *PreviewConfig) GetDefaultColumns() int {
	if c.DefaultColumns == nil {
		return 2 // default
	}
	return *c.DefaultColumns
}

// GetDefaultSlots returns the default slot count for grid previews.
func (c *PreviewConfig) GetDefaultSlots() int {
	if c.DefaultSlots == nil {
		return 4 // default
	}
	return *c.DefaultSlots
}

// GetHistoryPoints returns the per-tag sample ring capacity.
func (c *PreviewConfig) GetHistoryPoints() int {
	if c.HistoryPoints == nil {
		return 100 // default, the plotter's visible window
	}
	return *c.HistoryPoints
}

// GetShowPreview returns whether new panels stream previews by default.
func (c *PreviewConfig) GetShowPreview() bool {
	if c.ShowPreview == nil {
		return true // default
	}
	return *c.ShowPreview
}

// GetStreamInterval parses and returns the StreamInterval as a time.Duration.
func (c *PreviewConfig) GetStreamInterval() time.Duration {
	if c.StreamInterval == nil || *c.StreamInterval == "" {
		return 250 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.StreamInterval)
	if err != nil {
		return 250 * time.Millisecond // default on parse error
	}
	return d
}
