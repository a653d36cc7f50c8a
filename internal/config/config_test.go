package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Sync.RowDelay() != 150*time.Millisecond {
		t.Errorf("expected default row delay 150ms, got %s", cfg.Sync.RowDelay())
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected default log format json, got %s", cfg.Logging.Format)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
  base_path: /label/
database:
  path: /tmp/test.db
catalog:
  client_id: abc
  client_secret: xyz
sync:
  row_delay_ms: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/label" {
		t.Errorf("expected base path /label (trailing slash trimmed), got %q", cfg.Server.BasePath)
	}
	if cfg.Catalog.ClientID != "abc" {
		t.Errorf("expected client id abc, got %s", cfg.Catalog.ClientID)
	}
	if cfg.Sync.RowDelayMS != 10 {
		t.Errorf("expected row delay 10ms, got %d", cfg.Sync.RowDelayMS)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BL_PORT", "7070")
	t.Setenv("BL_CATALOG_CLIENT_ID", "env-id")
	t.Setenv("BL_SYNC_ROW_DELAY_MS", "25")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.ClientID != "env-id" {
		t.Errorf("expected env client id, got %s", cfg.Catalog.ClientID)
	}
	if cfg.Sync.RowDelayMS != 25 {
		t.Errorf("expected env row delay 25, got %d", cfg.Sync.RowDelayMS)
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("BL_PORT", "99999")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("expected missing config file to fall back to defaults, got %v", err)
	}
}
