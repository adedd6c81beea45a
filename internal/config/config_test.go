// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Presence.ReapInterval != 15*time.Second {
		t.Errorf("expected reap interval 15s, got %v", cfg.Presence.ReapInterval)
	}
	if cfg.Presence.GraceWindow != 60*time.Second {
		t.Errorf("expected grace window 60s, got %v", cfg.Presence.GraceWindow)
	}
	if cfg.Presence.EmergencyThreshold != 1000 {
		t.Errorf("expected emergency threshold 1000, got %d", cfg.Presence.EmergencyThreshold)
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("unexpected TMDB base URL: %s", cfg.TMDB.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("PRESENCE_GRACE_WINDOW", "90s")
	t.Setenv("PRESENCE_DEBUG", "true")
	t.Setenv("CORS_ORIGINS", "https://reelroom.example, https://alt.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from env, got %d", cfg.Server.Port)
	}
	if cfg.Presence.GraceWindow != 90*time.Second {
		t.Errorf("expected grace window 90s from env, got %v", cfg.Presence.GraceWindow)
	}
	if !cfg.Presence.Debug {
		t.Error("expected presence debug enabled from env")
	}

	want := []string{"https://reelroom.example", "https://alt.example"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("expected %d CORS origins, got %v", len(want), cfg.Security.CORSOrigins)
	}
	for i, origin := range want {
		if cfg.Security.CORSOrigins[i] != origin {
			t.Errorf("origin[%d]: got %q, want %q", i, cfg.Security.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 3000
presence:
  reap_interval: 5s
  grace_window: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000 from file, got %d", cfg.Server.Port)
	}
	if cfg.Presence.ReapInterval != 5*time.Second {
		t.Errorf("expected reap interval 5s from file, got %v", cfg.Presence.ReapInterval)
	}
	// Untouched fields keep defaults
	if cfg.Database.Path != "/data/reelroom.duckdb" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 3000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "4000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("env must override file: got %d, want 4000", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "negative reap interval",
			mutate:  func(c *Config) { c.Presence.ReapInterval = -time.Second },
			wantErr: "presence.reap_interval",
		},
		{
			name: "grace window below heartbeat",
			mutate: func(c *Config) {
				c.Presence.GraceWindow = 10 * time.Second
				c.Presence.HeartbeatInterval = 20 * time.Second
			},
			wantErr: "presence.grace_window",
		},
		{
			name:    "zero emergency threshold",
			mutate:  func(c *Config) { c.Presence.EmergencyThreshold = 0 },
			wantErr: "presence.emergency_threshold",
		},
		{
			name: "production without jwt secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.JWTSecret = ""
			},
			wantErr: "security.jwt_secret",
		},
		{
			name:    "bad tmdb url",
			mutate:  func(c *Config) { c.TMDB.BaseURL = "://not-a-url" },
			wantErr: "tmdb.base_url",
		},
		{
			name: "default page size above max",
			mutate: func(c *Config) {
				c.API.DefaultPageSize = 500
				c.API.MaxPageSize = 100
			},
			wantErr: "api.default_page_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"DUCKDB_PATH", "database.path"},
		{"TMDB_API_KEY", "tmdb.api_key"},
		{"PRESENCE_EMERGENCY_THRESHOLD", "presence.emergency_threshold"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""}, // unmapped vars are dropped
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
