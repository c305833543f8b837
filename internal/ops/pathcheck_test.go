package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hpungsan/leadscan/internal/errors"
)

func TestValidateOutputPath_TraversalRejected(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../backup.jsonl"},
		{"deep traversal", "../../etc/backup.jsonl"},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl"},
		{"hidden in path", "/tmp/safe/../../../etc/shadow.jsonl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutputPath(tc.path, ".jsonl")
			if err == nil {
				t.Error("expected error for path traversal, got nil")
			}
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateOutputPath_ExtensionRequired(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		exts []string
	}{
		{"no extension", filepath.Join(tmpDir, "backup"), []string{".jsonl"}},
		{"wrong extension", filepath.Join(tmpDir, "backup.json"), []string{".jsonl"}},
		{"not a chart", filepath.Join(tmpDir, "chart.jpg"), []string{".png", ".svg"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutputPath(tc.path, tc.exts...)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateOutputPath_Accepts(t *testing.T) {
	tmpDir := t.TempDir()

	for _, path := range []string{
		filepath.Join(tmpDir, "leads.jsonl"),
		filepath.Join(tmpDir, "chart.PNG"),
		filepath.Join(tmpDir, "new", "dir", "chart.svg"),
	} {
		if err := ValidateOutputPath(path, ".jsonl", ".png", ".svg"); err != nil {
			t.Errorf("ValidateOutputPath(%q) error = %v", path, err)
		}
	}
}

func TestValidateOutputPath_Empty(t *testing.T) {
	if err := ValidateOutputPath("  ", ".jsonl"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateOutputPath_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "out.jsonl")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	if err := ValidateOutputPath(dir, ".jsonl"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateOutputPath_SymlinkRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	tmpDir := t.TempDir()

	target := filepath.Join(tmpDir, "target.jsonl")
	if err := os.WriteFile(target, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	link := filepath.Join(tmpDir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	if err := ValidateOutputPath(link, ".jsonl"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for symlink file, got: %v", err)
	}

	realDir := filepath.Join(tmpDir, "real")
	if err := os.Mkdir(realDir, 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	linkDir := filepath.Join(tmpDir, "linkdir")
	if err := os.Symlink(realDir, linkDir); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	if err := ValidateOutputPath(filepath.Join(linkDir, "out.jsonl"), ".jsonl"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for symlinked parent, got: %v", err)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"All_Web_Leads", "All_Web_Leads"},
		{"../../etc/passwd", "etc-passwd"},
		{"a/b\\c", "a-b-c"},
		{"with\x00null", "withnull"},
		{"quote\"d", "quoted"},
		{"", "unnamed"},
		{"---", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeForFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeForFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
