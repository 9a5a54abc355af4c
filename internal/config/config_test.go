package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
time-format = "%H:%M:%S"
theme = "default-light"
concurrency = 4

[formatting]
flatten = "always"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.TimeFormat != "%H:%M:%S" || s.Theme != "default-light" || s.Concurrency != 4 {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.Formatting.Flatten != "always" {
		t.Fatalf("unexpected formatting: %+v", s.Formatting)
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "theme: default-light\nconcurrency: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.Theme != "default-light" || s.Concurrency != 2 {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestMergeOverridesScalarsOnly(t *testing.T) {
	base := Default()
	override := Settings{Theme: "default-light"}
	merged := Merge(base, override)
	if merged.Theme != "default-light" {
		t.Fatalf("expected theme override to apply")
	}
	if merged.TimeFormat != base.TimeFormat {
		t.Fatalf("expected unset fields to retain base value")
	}
}

func TestPrettifyDefaultsToTrue(t *testing.T) {
	s := Default()
	if !s.Formatting.Prettify() {
		t.Fatalf("expected default prettify to be true")
	}
	disabled := false
	s.Formatting.PrettifyFieldKeys = &disabled
	if s.Formatting.Prettify() {
		t.Fatalf("expected prettify to respect explicit false")
	}
}
