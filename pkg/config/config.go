// Package config provides unified configuration for the prompt tester.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PROMPTTESTER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the prompt tester server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	Limits        LimitsConfig        `yaml:"limits"`
	Storage       StorageConfig       `yaml:"storage"`
	Web           WebConfig           `yaml:"web"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 150s
	CORSOrigin   string        `yaml:"cors_origin"`   // single allowed browser origin, optional
}

// UpstreamConfig holds inference backend settings.
type UpstreamConfig struct {
	BaseURL      string        `yaml:"base_url"`     // required
	APIKey       string        `yaml:"api_key"`      // optional
	APIKeyFile   string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout      time.Duration `yaml:"timeout"`      // default: 120s
	ProbeOnStart bool          `yaml:"probe_on_start"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type     string         `yaml:"type"` // "none", "jwt", or "remote", default: "none"
	JWT      JWTConfig      `yaml:"jwt"`
	Provider ProviderConfig `yaml:"provider"`
}

// JWTConfig holds settings for local JWT validation against a JWKS endpoint.
type JWTConfig struct {
	JWKSURL    string `yaml:"jwks_url"`    // required for auth.type=jwt
	Issuer     string `yaml:"issuer"`      // optional
	Audience   string `yaml:"audience"`    // optional
	UserClaim  string `yaml:"user_claim"`  // default: "sub"
	EmailClaim string `yaml:"email_claim"` // default: "email"
}

// ProviderConfig points at the external auth provider. It is used by the
// remote authenticator and by the browser shell's sign-in flow.
type ProviderConfig struct {
	BaseURL     string `yaml:"base_url"`
	AnonKey     string `yaml:"anon_key"`
	AnonKeyFile string `yaml:"anon_key_file"` // _file variant for anon_key
}

// LimitsConfig holds rate limiting settings.
type LimitsConfig struct {
	RequestsPerWindow int            `yaml:"requests_per_window"` // default: 10, 0 disables
	Window            time.Duration  `yaml:"window"`              // default: 60s
	Tiers             map[string]int `yaml:"tiers"`               // per-tier budget overrides
}

// StorageConfig holds history store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory", "sqlite", or "postgres", default: "none"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1000
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "prompt-tester.db"
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`  // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"` // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// WebConfig holds browser shell settings.
type WebConfig struct {
	Enabled      bool   `yaml:"enabled"`       // default: true
	CookieName   string `yaml:"cookie_name"`   // default: "pt_session"
	CookieSecure bool   `yaml:"cookie_secure"` // set Secure on the session cookie
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"

	// Debug lists comma-separated debug categories (see pkg/debug).
	// PROMPTTESTER_DEBUG overrides this value.
	Debug string `yaml:"debug"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 150 * time.Second,
		},
		Upstream: UpstreamConfig{
			Timeout:      120 * time.Second,
			ProbeOnStart: true,
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Limits: LimitsConfig{
			RequestsPerWindow: 10,
			Window:            60 * time.Second,
		},
		Storage: StorageConfig{
			Type:    "none",
			MaxSize: 1000,
			SQLite: SQLiteConfig{
				Path: "prompt-tester.db",
			},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Web: WebConfig{
			Enabled:    true,
			CookieName: "pt_session",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
