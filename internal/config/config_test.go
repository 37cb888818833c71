//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  url: postgres://localhost:5432/app
redis:
  url: localhost:6379
gateway:
  client_id: cid
  api_key: key
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("max conns = %d, want 10", cfg.Database.MaxConns)
	}
	if cfg.Gateway.TokenTTL.Std() != 50*time.Minute {
		t.Errorf("token ttl = %v, want 50m", cfg.Gateway.TokenTTL)
	}
	if cfg.Scheduler.ExpiryInterval.Std() != time.Hour {
		t.Errorf("expiry interval = %v, want 1h", cfg.Scheduler.ExpiryInterval)
	}
	if cfg.Runtime.Dev {
		t.Error("dev mode should be off")
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing database url", `
redis:
  url: localhost:6379
gateway:
  client_id: cid
  api_key: key
`},
		{"missing redis url", `
database:
  url: postgres://localhost:5432/app
gateway:
  client_id: cid
  api_key: key
`},
		{"missing gateway credentials", `
database:
  url: postgres://localhost:5432/app
redis:
  url: localhost:6379
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.content), false); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  port: 9090
log:
  level: debug
  format: console
database:
  url: postgres://localhost:5432/app
  max_conns: 25
redis:
  url: localhost:6379
gateway:
  client_id: cid
  api_key: key
  token_ttl: 20m
scheduler:
  expiry_interval: 30m
`), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Database.MaxConns != 25 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Gateway.TokenTTL.Std() != 20*time.Minute || cfg.Scheduler.ExpiryInterval.Std() != 30*time.Minute {
		t.Errorf("duration overrides not applied: %+v", cfg)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag not carried")
	}
}
