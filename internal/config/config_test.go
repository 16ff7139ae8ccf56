package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/dominspect/inspect"
)

func TestLoadFileWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
browser:
  headless: true
page:
  url: https://example.com
panel:
  width: 400
persist:
  path: /tmp/state.db
sinks:
  - type: stdout
  - type: webhook
    url: https://hooks.example.com/di
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Browser.Headless || cfg.Page.URL != "https://example.com" {
		t.Fatalf("parsed %+v", cfg)
	}
	if cfg.Panel.Width != 400 {
		t.Fatalf("explicit width lost: %d", cfg.Panel.Width)
	}
	// Defaults fill the rest.
	if cfg.Panel.Height != 600 || cfg.Panel.HighlightMode != "border" {
		t.Fatalf("panel defaults %+v", cfg.Panel)
	}
	if cfg.HTTP.Listen != "127.0.0.1:9223" {
		t.Fatalf("http default %q", cfg.HTTP.Listen)
	}
	if cfg.Persist.Debounce != 300*time.Millisecond {
		t.Fatalf("debounce default %v", cfg.Persist.Debounce)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].URL == "" {
		t.Fatalf("sinks %+v", cfg.Sinks)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestLoadFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("browser: [unclosed"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("bad yaml must error")
	}
}

func TestInitialState(t *testing.T) {
	cfg := Default()
	cfg.Panel.Width = 500
	cfg.Panel.HighlightMode = "shade"

	s := cfg.InitialState()
	if s.Size.Width != 500 {
		t.Fatalf("size %+v", s.Size)
	}
	if s.Highlight.Mode != inspect.HighlightShade {
		t.Fatalf("mode %q", s.Highlight.Mode)
	}
	// Untouched fields keep the standard defaults.
	if s.Position != (inspect.Position{X: 100, Y: 100}) {
		t.Fatalf("position %+v", s.Position)
	}
}
