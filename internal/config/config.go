package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":5000"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "vexport"
	DefaultPGSSLMode    = "disable"
	DefaultUploadRoot   = "uploads"
	DefaultStoreRegion  = "us-east-1"
	DefaultStoreBucket  = "vexport-assets"
	DefaultStoreTimeout = 30
	DefaultListLimit    = 100
	DefaultSweepSpec    = "0 3 * * *"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Store    StoreConfig    `toml:"store"`
	Cleanup  CleanupConfig  `toml:"cleanup"`
	Sweep    SweepConfig    `toml:"sweep"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// UploadsConfig controls the local staging area.
type UploadsConfig struct {
	Root string `toml:"root"`
}

// StoreConfig configures the S3-compatible remote asset store.
type StoreConfig struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	PublicBaseURL  string `toml:"public_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ListLimit      int    `toml:"list_limit"`
	// RetryAttempts enables bounded retry with backoff on remote
	// upload/delete calls. Zero disables retries entirely.
	RetryAttempts int `toml:"retry_attempts"`
}

// CleanupConfig controls what happens to a vehicle's attached assets when the
// vehicle record is deleted. Remote deletion is off unless enabled here.
type CleanupConfig struct {
	DeleteRemoteImages bool `toml:"delete_remote_images"`
}

// SweepConfig configures the periodic orphan reconciliation job.
type SweepConfig struct {
	Enabled bool `toml:"enabled"`
	// Schedule is a cron expression; empty falls back to the default.
	Schedule string `toml:"schedule"`
	// DeleteOrphans switches the sweep from report-only to destructive.
	DeleteOrphans bool `toml:"delete_orphans"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Uploads: UploadsConfig{
			Root: DefaultUploadRoot,
		},
		Store: StoreConfig{
			Region:         DefaultStoreRegion,
			Bucket:         DefaultStoreBucket,
			TimeoutSeconds: DefaultStoreTimeout,
			ListLimit:      DefaultListLimit,
		},
		Sweep: SweepConfig{
			Schedule: DefaultSweepSpec,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
