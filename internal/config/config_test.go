package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Realtime.PresenceSettleMS != 750 {
		t.Fatalf("expected default settle delay 750ms, got %d", cfg.Realtime.PresenceSettleMS)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Fatalf("env secret not applied")
	}
}

func TestLoadFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := []byte(`
server:
  port: 9090
auth:
  jwt_secret: from-file
realtime:
  presence_settle_ms: 100
logging:
  level: debug
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("env override lost: got port %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("file secret lost")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("file log level lost")
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing jwt secret")
	}
}
