// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds every runtime setting.
type Config struct {
	Port       int    `env:"PORT"        envDefault:"8080"`
	StaticPath string `env:"STATIC_PATH" envDefault:"./public"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	DataPath      string `env:"DATA_PATH"      envDefault:"./data/data.json"`
	DBPath        string `env:"DB_PATH"        envDefault:"./data/slices.db"`

	SnapshotDebounce time.Duration `env:"SNAPSHOT_DEBOUNCE" envDefault:"250ms"`
	AuditLogLimit    int           `env:"AUDIT_LOG_LIMIT"   envDefault:"1000"`

	SubscriberSendTimeout time.Duration `env:"SUBSCRIBER_SEND_TIMEOUT" envDefault:"5s"`
	SubscriberKeepAlive   time.Duration `env:"SUBSCRIBER_KEEPALIVE"    envDefault:"25s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT %d out of range", c.Port)
	case c.StorageDriver != DriverFile && c.StorageDriver != DriverSQLite:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	case c.StorageDriver == DriverFile && c.DataPath == "":
		return errors.New("DATA_PATH is required for the file driver")
	case c.StorageDriver == DriverSQLite && c.DBPath == "":
		return errors.New("DB_PATH is required for the sqlite driver")
	case c.SnapshotDebounce <= 0:
		return errors.New("SNAPSHOT_DEBOUNCE must be positive")
	case c.AuditLogLimit < 1:
		return errors.New("AUDIT_LOG_LIMIT must be at least 1")
	case c.SubscriberSendTimeout <= 0:
		return errors.New("SUBSCRIBER_SEND_TIMEOUT must be positive")
	case c.SubscriberKeepAlive < 0:
		return errors.New("SUBSCRIBER_KEEPALIVE must not be negative")
	case c.ShutdownTimeout <= 0:
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
