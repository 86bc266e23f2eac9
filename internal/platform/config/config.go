// Package config builds runtime configuration from an optional YAML file with
// environment variable overrides, so main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Storage  Storage  `yaml:"storage"`
	DNS      DNS      `yaml:"dns"`
	Tenant   Tenant   `yaml:"tenant"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database holds the Postgres connection settings. An empty URL selects the
// in-memory stores (demo mode).
type Database struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// Auth holds token signing settings.
type Auth struct {
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// Storage holds the default S3-compatible credentials used when a tenant has
// no credentials of its own and no default row exists in the credential store.
type Storage struct {
	KeyID    string `yaml:"key_id"`
	Key      string `yaml:"key"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
}

// DNS holds Cloudflare provisioning settings. Empty token disables provisioning.
type DNS struct {
	APIToken   string `yaml:"api_token"`
	ZoneID     string `yaml:"zone_id"`
	BaseDomain string `yaml:"base_domain"`
}

// Tenant holds per-tenant defaults applied at creation time.
type Tenant struct {
	DefaultStorageLimitMB int `yaml:"default_storage_limit_mb"`
	DefaultExpiryDays     int `yaml:"default_expiry_days"`
}

// Default returns the baseline configuration before file/env overrides.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: Auth{
			// Development default - must be overridden in production.
			JWTSigningKey: "dev-secret-key-change-in-production",
			TokenTTL:      24 * time.Hour,
		},
		Storage: Storage{
			Bucket:   "photo-portal",
			Endpoint: "https://s3.us-west-000.backblazeb2.com",
		},
		DNS: DNS{
			BaseDomain: "localhost",
		},
		Tenant: Tenant{
			DefaultStorageLimitMB: 500,
			DefaultExpiryDays:     90,
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file named
// by PORTAL_CONFIG_FILE, then environment variables (highest precedence).
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PORTAL_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Addr, "PORTAL_ADDR")
	setDuration(&cfg.Server.RequestTimeout, "PORTAL_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "PORTAL_SHUTDOWN_TIMEOUT")

	setString(&cfg.Database.URL, "DATABASE_URL")
	setInt(&cfg.Database.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS")
	setInt(&cfg.Database.MaxIdleConns, "DATABASE_MAX_IDLE_CONNS")

	setString(&cfg.Auth.JWTSigningKey, "JWT_SIGNING_KEY")
	setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL")

	setString(&cfg.Storage.KeyID, "S3_APPLICATION_KEY_ID")
	setString(&cfg.Storage.Key, "S3_APPLICATION_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET_NAME")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")

	setString(&cfg.DNS.APIToken, "CLOUDFLARE_API_TOKEN")
	setString(&cfg.DNS.ZoneID, "CLOUDFLARE_ZONE_ID")
	setString(&cfg.DNS.BaseDomain, "BASE_DOMAIN")

	setInt(&cfg.Tenant.DefaultStorageLimitMB, "DEFAULT_STORAGE_LIMIT_MB")
	setInt(&cfg.Tenant.DefaultExpiryDays, "DEFAULT_TENANT_EXPIRY_DAYS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
