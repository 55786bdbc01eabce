package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
assessment:
  win_multiplier: 1.5
storage:
  type: minio
  minio_bucket: questions
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Mode != "release" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Assessment.WinMultiplier != 1.5 || cfg.Assessment.InitialCoins != 1000 || cfg.Assessment.TimerSeconds != 30 {
		t.Fatalf("unexpected assessment defaults %+v", cfg.Assessment)
	}
	if cfg.Storage.Type != "minio" || cfg.Storage.MinioBucket != "questions" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Upload.MaxImageBytes != 2<<20 || cfg.Upload.ImageWorkers != 4 {
		t.Fatalf("unexpected upload defaults %+v", cfg.Upload)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"bogus", time.Minute},
	}
	for _, tc := range cases {
		if got := TTLDuration(tc.raw, time.Minute); got != tc.want {
			t.Fatalf("TTLDuration(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
