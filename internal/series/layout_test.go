package series

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	return path
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	if l.InnerWidth() != 1410 || l.InnerHeight() != 480 {
		t.Errorf("inner size = %dx%d, want 1410x480", l.InnerWidth(), l.InnerHeight())
	}
	if l.XLabel != "Release Date" || l.YLabel != "Popularity" {
		t.Errorf("labels = %q / %q", l.XLabel, l.YLabel)
	}
	if err := l.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadLayoutOverridesDefaults(t *testing.T) {
	path := writeLayout(t, `
width: 900
margin:
  left: 80
x_label: "Released"
`)

	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if l.Width != 900 || l.Margin.Left != 80 || l.XLabel != "Released" {
		t.Errorf("overrides not applied: %+v", l)
	}
	if l.Height != 600 || l.Margin.Top != 50 || l.YLabel != "Popularity" || l.MarkerHoverRadius != 8 {
		t.Errorf("unset keys should keep defaults: %+v", l)
	}
}

func TestLoadLayoutErrors(t *testing.T) {
	if _, err := LoadLayout("non_existent_layout.yaml"); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadLayout(writeLayout(t, "width: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := LoadLayout(writeLayout(t, "width: 50\n")); err == nil {
		t.Error("expected error when margins exceed the width")
	}

	l, err := LoadLayout("")
	if err != nil || l != DefaultLayout() {
		t.Errorf("empty path should yield defaults, got %+v, %v", l, err)
	}
}
