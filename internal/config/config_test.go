package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("API_URL", "")

	cfg := Load()
	if cfg.APIURL != "http://127.0.0.1:8000/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.AuthScheme != "Token" {
		t.Errorf("AuthScheme = %q, want Token", cfg.AuthScheme)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Session.Backend != SessionBackendFile || cfg.Session.Key != "auth-storage" {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.ReorderOnSend {
		t.Error("ReorderOnSend should default to false")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := []byte(`
api_url: http://backend.local/api/
http_timeout: 3
reorder_on_send: true
session:
  backend: redis
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_TIMEOUT", "7")
	t.Setenv("SESSION_KEY", "pwa-auth")

	cfg := Load()
	if cfg.APIURL != "http://backend.local/api" {
		t.Errorf("APIURL = %q, trailing slash should be trimmed", cfg.APIURL)
	}
	if cfg.HTTPTimeout != 7*time.Second {
		t.Errorf("env should win over yaml, got %v", cfg.HTTPTimeout)
	}
	if !cfg.ReorderOnSend {
		t.Error("ReorderOnSend from yaml not applied")
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Errorf("Session.Backend = %q", cfg.Session.Backend)
	}
	if cfg.Session.Key != "pwa-auth" {
		t.Errorf("Session.Key = %q", cfg.Session.Key)
	}
	if cfg.Session.Path == "" {
		t.Error("Session.Path default lost when yaml omits it")
	}
}

func TestEnvBoolFallback(t *testing.T) {
	t.Setenv("SEED_DEMO", "not-a-bool")
	if envBool("SEED_DEMO", true) != true {
		t.Error("invalid bool should fall back")
	}
}
