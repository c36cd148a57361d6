// Package config loads the device-side settings for dispatchctl from a TOML
// file, with environment overrides for scripted runs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved device configuration
type Config struct {
	ServerURL    string
	Token        string
	ActorID      string
	DataPath     string
	PollInterval time.Duration
}

const (
	DefaultConfigPath   = "~/.config/haulr/config.toml"
	defaultDataPath     = "~/.local/share/haulr/device.db"
	defaultServerURL    = "http://127.0.0.1:8080"
	defaultPollInterval = 5 * time.Second
)

type fileConfig struct {
	ServerURL    string `toml:"server_url"`
	Token        string `toml:"token,omitempty"`
	ActorID      string `toml:"actor_id,omitempty"`
	DataPath     string `toml:"data_path,omitempty"`
	PollInterval string `toml:"poll_interval,omitempty"`
}

// Load reads path (or the default location), falling back to defaults when the
// file is missing. HAULR_SERVER_URL, HAULR_TOKEN, HAULR_ACTOR_ID and
// HAULR_DATA_PATH override the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServerURL:    defaultServerURL,
		DataPath:     mustExpand(defaultDataPath),
		PollInterval: defaultPollInterval,
	}

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.ActorID = strings.TrimSpace(raw.ActorID)
	if v := strings.TrimSpace(raw.DataPath); v != "" {
		cfg.DataPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.PollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse poll_interval %q: must be a positive duration", v)
		}
		cfg.PollInterval = d
	}

	applyEnv(&cfg)
	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var raw fileConfig
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HAULR_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("HAULR_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("HAULR_ACTOR_ID"); v != "" {
		cfg.ActorID = v
	}
	if v := os.Getenv("HAULR_DATA_PATH"); v != "" {
		cfg.DataPath = mustExpand(v)
	}
}

// SaveToken stores token (and the actor it belongs to) in the config file at
// path, keeping the other settings already there.
func SaveToken(path, token, actorID string) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	raw, err := readFile(resolved)
	if err != nil {
		return err
	}
	raw.Token = token
	if actorID != "" {
		raw.ActorID = actorID
	}

	data, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
