package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HAULR_SERVER_URL", "HAULR_TOKEN", "HAULR_ACTOR_ID", "HAULR_DATA_PATH"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, defaultServerURL)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %s, want %s", cfg.PollInterval, defaultPollInterval)
	}
	if !strings.HasPrefix(cfg.DataPath, home) {
		t.Fatalf("DataPath = %q, want it under HOME %q", cfg.DataPath, home)
	}
}

func TestLoad_ParsesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server_url = "  https://dispatch.example.com  "
token = "abc"
actor_id = "driver-2"
data_path = "~/haulr/device.db"
poll_interval = "30s"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "https://dispatch.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Token != "abc" || cfg.ActorID != "driver-2" {
		t.Errorf("Token/ActorID = %q/%q", cfg.Token, cfg.ActorID)
	}
	if cfg.DataPath != filepath.Join(home, "haulr", "device.db") {
		t.Errorf("DataPath = %q", cfg.DataPath)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("HAULR_SERVER_URL", "http://10.0.0.9:8080")
	t.Setenv("HAULR_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server_url = "http://file"`+"\n"+`token = "from-file"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "http://10.0.0.9:8080" || cfg.Token != "from-env" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `server_url = `},
		{"bad interval", `poll_interval = "soon"`},
		{"negative interval", `poll_interval = "-5s"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSaveToken_KeepsOtherSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`server_url = "https://dispatch.example.com"`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := SaveToken(path, "jwt-token", "driver-1"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "jwt-token" || cfg.ActorID != "driver-1" || cfg.ServerURL != "https://dispatch.example.com" {
		t.Errorf("cfg = %+v", cfg)
	}
}
