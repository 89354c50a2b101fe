package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Processing.TargetSpacing.X != 1.0 ||
		cfg.Processing.TargetSpacing.Y != 1.0 ||
		cfg.Processing.TargetSpacing.Z != 1.0 {
		t.Errorf("default target spacing = %+v, want 1mm on every axis", cfg.Processing.TargetSpacing)
	}
	if cfg.Processing.Threshold != 300 {
		t.Errorf("default threshold = %v, want 300", cfg.Processing.Threshold)
	}
	if cfg.Processing.Step != 1 {
		t.Errorf("default step = %v, want 1", cfg.Processing.Step)
	}
	if !cfg.Snapshot.Enabled {
		t.Error("snapshot cache should be enabled by default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should fall back to defaults, got %v", err)
	}
	if cfg.Processing.Threshold != DefaultConfig().Processing.Threshold {
		t.Errorf("fallback config differs from defaults: %+v", cfg)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "dicomto3d.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Threshold = 150
	cfg.Processing.Step = 2
	cfg.Snapshot.Dir = "cache"
	cfg.Viewer.WindowCenter = 40
	cfg.Viewer.WindowWidth = 400

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Processing.Threshold != 150 || loaded.Processing.Step != 2 {
		t.Errorf("processing section did not roundtrip: %+v", loaded.Processing)
	}
	if loaded.Snapshot.Dir != "cache" {
		t.Errorf("snapshot dir = %q, want %q", loaded.Snapshot.Dir, "cache")
	}
	if loaded.Viewer.WindowCenter != 40 || loaded.Viewer.WindowWidth != 400 {
		t.Errorf("viewer window did not roundtrip: %+v", loaded.Viewer)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "processing:\n  threshold: 700\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Processing.Threshold != 700 {
		t.Errorf("threshold = %v, want the file's 700", cfg.Processing.Threshold)
	}
	// Unset keys keep their defaults.
	if cfg.Snapshot.Dir != "snapshots" {
		t.Errorf("snapshot dir = %q, want the default %q", cfg.Snapshot.Dir, "snapshots")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomto3d.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("failed to create default config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}
