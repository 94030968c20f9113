package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safeDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file inside", filepath.Join(safeDir, "out.png"), false},
		{"nested file inside", filepath.Join(safeDir, "a", "b", "out.png"), false},
		{"dot-dot escape", filepath.Join(safeDir, "..", "escape.png"), true},
		{"absolute outside", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safeDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	safeDir := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(safeDir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if err := ValidatePathWithinDirectory(filepath.Join(link, "out.png"), safeDir); err == nil {
		t.Error("path through an escaping symlink should be rejected")
	}
}

func TestValidateExportPath(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	if err := ValidateExportPath(filepath.Join(cwd, "layout.png")); err != nil {
		t.Errorf("path in working directory should be allowed: %v", err)
	}
	if err := ValidateExportPath(filepath.Join(os.TempDir(), "layout.png")); err != nil {
		t.Errorf("path in temp directory should be allowed: %v", err)
	}
	if err := ValidateExportPath("/etc/layout.png"); err == nil {
		t.Error("path outside allowed directories should be rejected")
	}
}
