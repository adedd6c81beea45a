// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML config file, and environment variables (highest priority).
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Presence PresenceConfig `koanf:"presence"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8080)
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - SERVER_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the social data store
// (discussions, comments, watchlists, watch progress).
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/reelroom.duckdb)
//   - DUCKDB_MAX_MEMORY: Memory limit passed to DuckDB (default: 1GB)
//   - DUCKDB_THREADS: Worker threads, 0 = runtime.NumCPU()
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// TMDBConfig holds settings for the TMDB metadata client. The client wraps
// calls in a circuit breaker and a token-bucket rate limiter so a TMDB outage
// or quota exhaustion degrades to cached responses instead of cascading.
//
// Environment Variables:
//   - TMDB_API_KEY: v3 API key (required for metadata endpoints)
//   - TMDB_BASE_URL: API base URL (default: https://api.themoviedb.org/3)
//   - TMDB_TIMEOUT: Per-request timeout (default: 10s)
//   - TMDB_RATE_LIMIT: Requests per second against TMDB (default: 40)
//   - TMDB_CACHE_TTL: Read-through cache TTL (default: 6h)
type TMDBConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// PresenceConfig tunes the active-user presence registry and its reaper.
//
// GraceWindow must comfortably exceed the client heartbeat interval so a
// single dropped heartbeat does not evict a live connection. The default
// grace window of 60s covers three missed 20s heartbeats.
//
// Environment Variables:
//   - PRESENCE_REAP_INTERVAL: Reaper tick (default: 15s)
//   - PRESENCE_GRACE_WINDOW: Staleness cutoff (default: 60s)
//   - PRESENCE_EMERGENCY_THRESHOLD: Connection count that triggers an
//     immediate out-of-cycle sweep (default: 1000)
//   - PRESENCE_HEARTBEAT_INTERVAL: Advertised client heartbeat (default: 20s)
//   - PRESENCE_DEBUG: Include registry internals in query responses
type PresenceConfig struct {
	ReapInterval       time.Duration `koanf:"reap_interval"`
	GraceWindow        time.Duration `koanf:"grace_window"`
	EmergencyThreshold int           `koanf:"emergency_threshold"`
	HeartbeatInterval  time.Duration `koanf:"heartbeat_interval"`
	Debug              bool          `koanf:"debug"`
}

// CacheConfig holds Badger settings for the TMDB read-through cache.
//
// Environment Variables:
//   - CACHE_PATH: Badger directory (default: /data/cache)
//   - CACHE_IN_MEMORY: Run Badger without disk persistence (default: false)
type CacheConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds authentication and rate limiting settings.
//
// Environment Variables:
//   - JWT_SECRET: HMAC secret for session tokens (required in production)
//   - ANON_COOKIE_SECRET: securecookie HMAC key for anonymous identity
//     cookies; generated at startup if empty (identities then rotate on
//     restart)
//   - ADMIN_USERNAME / ADMIN_PASSWORD: Bootstrap admin credentials
//   - SESSION_TIMEOUT: Token lifetime (default: 24h)
//   - RATE_LIMIT_REQS / RATE_LIMIT_WINDOW: Per-IP request budget
//   - CORS_ORIGINS: Comma-separated allowed origins
type SecurityConfig struct {
	JWTSecret        string        `koanf:"jwt_secret"`
	AnonCookieSecret string        `koanf:"anon_cookie_secret"`
	AdminUsername    string        `koanf:"admin_username"`
	AdminPassword    string        `koanf:"admin_password"`
	SessionTimeout   time.Duration `koanf:"session_timeout"`
	RateLimitReqs    int           `koanf:"rate_limit_reqs"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window"`
	CORSOrigins      []string      `koanf:"cors_origins"`
}

// APIConfig holds pagination limits for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include file:line in log events
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid or inconsistent values.
// It is called by Load() after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be >= 0, got %d", c.Database.Threads)
	}

	if c.TMDB.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.TMDB.BaseURL); err != nil {
			return fmt.Errorf("tmdb.base_url is not a valid URL: %w", err)
		}
	}
	if c.TMDB.RateLimit <= 0 {
		return fmt.Errorf("tmdb.rate_limit must be positive, got %v", c.TMDB.RateLimit)
	}

	if err := c.Presence.validate(); err != nil {
		return err
	}

	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("security.session_timeout must be positive, got %v", c.Security.SessionTimeout)
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	if c.Security.RateLimitReqs < 0 {
		return fmt.Errorf("security.rate_limit_reqs must be >= 0, got %d", c.Security.RateLimitReqs)
	}

	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be between 1 and api.max_page_size (%d), got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}

	return nil
}

func (p *PresenceConfig) validate() error {
	if p.ReapInterval <= 0 {
		return fmt.Errorf("presence.reap_interval must be positive, got %v", p.ReapInterval)
	}
	if p.GraceWindow <= 0 {
		return fmt.Errorf("presence.grace_window must be positive, got %v", p.GraceWindow)
	}
	if p.HeartbeatInterval <= 0 {
		return fmt.Errorf("presence.heartbeat_interval must be positive, got %v", p.HeartbeatInterval)
	}
	if p.GraceWindow <= p.HeartbeatInterval {
		return fmt.Errorf("presence.grace_window (%v) must exceed presence.heartbeat_interval (%v) or live connections get evicted",
			p.GraceWindow, p.HeartbeatInterval)
	}
	if p.EmergencyThreshold < 1 {
		return fmt.Errorf("presence.emergency_threshold must be >= 1, got %d", p.EmergencyThreshold)
	}
	return nil
}
