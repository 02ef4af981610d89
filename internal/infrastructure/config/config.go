package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Campus Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
	Seed      SeedConfig      `yaml:"seed"`
}

// AppConfig contains application-wide settings.
type AppConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig contains token signing and refresh-token hashing settings.
//
// Secret and RefreshPepper are hard boot requirements. There is no runtime
// fallback: a missing secret would let anyone forge access tokens, and a
// missing pepper would let a leaked database be matched against candidate
// raw refresh tokens.
type AuthConfig struct {
	// Secret signs access tokens (HS256). Minimum 32 characters.
	Secret string `yaml:"secret"`

	// Issuer is the fixed `iss` claim placed in every access token.
	Issuer string `yaml:"issuer"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime in days.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`

	// RefreshPepper keys the HMAC used to hash refresh tokens at rest.
	RefreshPepper string `yaml:"refresh_pepper"`
}

// RetentionConfig contains soft-delete retention and purge job settings.
type RetentionConfig struct {
	// Days is how long a soft-deleted account is retained before it
	// becomes eligible for hard deletion.
	Days int `yaml:"days"`

	// PurgeInterval is how often the purge job runs, in minutes.
	PurgeInterval int `yaml:"purge_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SeedConfig describes the optional first-boot organization seed.
// When Enabled and the database has no organizations, an organization with
// the given domains and a founding admin account are created.
type SeedConfig struct {
	Enabled       bool     `yaml:"enabled"`
	OrgName       string   `yaml:"org_name"`
	Domains       []string `yaml:"domains"`
	AdminEmail    string   `yaml:"admin_email"`
	AdminName     string   `yaml:"admin_name"`
	AdminPassword string   `yaml:"admin_password"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CAMPUSCORE_SECTION_KEY
// For example: CAMPUSCORE_DATABASE_PATH, CAMPUSCORE_AUTH_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default lifetimes and job cadence.
const (
	defaultAccessTTLMinutes = 15
	defaultRefreshTTLDays   = 30
	defaultRetentionDays    = 30
	defaultPurgeMinutes     = 60
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "Campus Core",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/campuscore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Auth: AuthConfig{
			Issuer:          "campus-core",
			AccessTokenTTL:  defaultAccessTTLMinutes,
			RefreshTokenTTL: defaultRefreshTTLDays,
		},
		Retention: RetentionConfig{
			Days:          defaultRetentionDays,
			PurgeInterval: defaultPurgeMinutes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CAMPUSCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CAMPUSCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("CAMPUSCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CAMPUSCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Auth secrets (IMPORTANT: always set via environment in production)
	if v := os.Getenv("CAMPUSCORE_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("CAMPUSCORE_AUTH_PEPPER"); v != "" {
		cfg.Auth.RefreshPepper = v
	}
	if v := os.Getenv("CAMPUSCORE_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
}

// minSecretLength is the minimum length for the signing secret and pepper.
// Shorter values make token forgery and offline hash matching feasible.
const minSecretLength = 32

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch {
	case c.Auth.Secret == "":
		errs = append(errs, "auth.secret is required (set CAMPUSCORE_AUTH_SECRET environment variable)")
	case len(c.Auth.Secret) < minSecretLength:
		errs = append(errs, "auth.secret must be at least 32 characters")
	}

	switch {
	case c.Auth.RefreshPepper == "":
		errs = append(errs, "auth.refresh_pepper is required (set CAMPUSCORE_AUTH_PEPPER environment variable)")
	case len(c.Auth.RefreshPepper) < minSecretLength:
		errs = append(errs, "auth.refresh_pepper must be at least 32 characters")
	}

	if c.Auth.Issuer == "" {
		errs = append(errs, "auth.issuer is required")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, "auth.access_token_ttl must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, "auth.refresh_token_ttl must be positive")
	}

	if c.Retention.Days < 1 {
		errs = append(errs, "retention.days must be at least 1")
	}

	if c.Seed.Enabled {
		if c.Seed.OrgName == "" || len(c.Seed.Domains) == 0 {
			errs = append(errs, "seed.org_name and seed.domains are required when seed.enabled")
		}
		if c.Seed.AdminEmail == "" {
			errs = append(errs, "seed.admin_email is required when seed.enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// AccessTokenTTL returns the access token lifetime as a Duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTL) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime as a Duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenTTL) * 24 * time.Hour
}

// RetentionWindow returns the soft-delete retention window as a Duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}

// PurgeInterval returns the purge job interval as a Duration.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Retention.PurgeInterval) * time.Minute
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
