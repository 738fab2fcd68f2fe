package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// upstream.base_url is required.
	if c.Upstream.BaseURL == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url is required"))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "jwt", "remote":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"jwt\", or \"remote\", got %q", c.Auth.Type))
	}

	// jwt auth needs a JWKS endpoint for signature verification.
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	// remote auth needs the provider address.
	if c.Auth.Type == "remote" && c.Auth.Provider.BaseURL == "" {
		errs = append(errs, fmt.Errorf("auth.provider.base_url is required when auth.type is \"remote\""))
	}

	// limits.window must be positive when rate limiting is on.
	if c.Limits.RequestsPerWindow > 0 && c.Limits.Window <= 0 {
		errs = append(errs, fmt.Errorf("limits.window must be > 0, got %s", c.Limits.Window))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "none", "memory", "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"memory\", \"sqlite\", or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// If storage.type is "sqlite", a path must be set.
	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is \"sqlite\""))
	}

	// logging.level must be a known value.
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"trace\", \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Logging.Level))
	}

	// logging.format must be a known value.
	switch c.Logging.Format {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
