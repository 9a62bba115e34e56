package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration populated from environment variables.
type Config struct {
	// Core
	ServerEnv         string // "development" or "production"
	Port              int
	ShutdownToken     string
	LogHealthRequests bool
	CORSAllowOrigins  string

	// Database. Database == "mem" selects the in-memory backend (internal/memstore); any other value is the
	// host[:port]/dbname portion of a PostgreSQL DSN, combined with DatabaseUser/DatabasePassword.
	Database        string
	DatabaseUser    string
	DatabasePassword string
	DatabaseMaxConn int
	DatabaseMinConn int

	// MemSnapshotPath is where the in-memory backend persists its periodic snapshot (spec.md §6).
	MemSnapshotPath string

	// Valkey/Redis backs the Credential Registry when configured; an empty URL falls back to the in-memory
	// MemRegistry for both storage backends.
	ValkeyURL string

	// Uploads
	UploadDir       string
	MaxUploadSizeMB int
}

// Load reads configuration from environment variables with defaults. It returns an error if any variable is set but
// cannot be parsed, or if a required value is missing.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		ServerEnv:         envStr("SERVER_ENV", "production"),
		Port:              p.int("PORT", 3333),
		ShutdownToken:     envStr("SHUTDOWN_TOKEN", ""),
		LogHealthRequests: p.bool("LOG_HEALTH_REQUESTS", false),
		CORSAllowOrigins:  envStr("CORS_ALLOW_ORIGINS", "*"),

		Database:        envStr("DATABASE", "mem"),
		DatabaseUser:    envStr("DATABASE_USER", ""),
		DatabasePassword: envStr("DATABASE_PASSWORD", ""),
		DatabaseMaxConn: p.int("DATABASE_MAX_CONNS", 25),
		DatabaseMinConn: p.int("DATABASE_MIN_CONNS", 5),

		MemSnapshotPath: envStr("MEM_SNAPSHOT_PATH", "docker/data/mem.json"),

		ValkeyURL: envStr("VALKEY_URL", ""),

		UploadDir:       envStr("UPLOAD_DIR", "docker/data/uploads"),
		MaxUploadSizeMB: p.int("MAX_UPLOAD_SIZE_MB", 50),
	}

	if parseErr := errors.Join(p.errs...); parseErr != nil {
		return nil, parseErr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.ServerEnv == "development"
}

// IsMemBackend returns true when DATABASE selects the in-memory backend.
func (c *Config) IsMemBackend() bool {
	return c.Database == "mem"
}

// PostgresDSN builds a libpq connection string from Database/DatabaseUser/DatabasePassword. Only meaningful when
// !IsMemBackend().
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s?sslmode=disable", c.DatabaseUser, c.DatabasePassword, c.Database)
}

// BodyLimitBytes returns the maximum request body size in bytes, derived from MaxUploadSizeMB with a small margin
// for multipart framing overhead.
func (c *Config) BodyLimitBytes() int {
	return (c.MaxUploadSizeMB + 1) * 1024 * 1024
}

func (c *Config) validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535"))
	}

	if c.ShutdownToken == "" {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TOKEN is required"))
	}

	if !c.IsMemBackend() {
		if c.DatabaseUser == "" {
			errs = append(errs, fmt.Errorf("DATABASE_USER is required when DATABASE is not \"mem\""))
		}
		if c.DatabaseMaxConn < 1 {
			errs = append(errs, fmt.Errorf("DATABASE_MAX_CONNS must be at least 1"))
		}
		if c.DatabaseMinConn < 0 {
			errs = append(errs, fmt.Errorf("DATABASE_MIN_CONNS must not be negative"))
		}
		if c.DatabaseMinConn > c.DatabaseMaxConn {
			errs = append(errs, fmt.Errorf("DATABASE_MIN_CONNS (%d) must not exceed DATABASE_MAX_CONNS (%d)", c.DatabaseMinConn, c.DatabaseMaxConn))
		}
	}

	if c.MaxUploadSizeMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_SIZE_MB must be at least 1"))
	}

	return errors.Join(errs...)
}

// parser collects parse errors so Load can report all invalid values at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected integer)", key, v))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected boolean)", key, v))
		return fallback
	}
	return b
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
