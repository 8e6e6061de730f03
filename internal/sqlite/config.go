// File path: internal/sqlite/config.go
package sqlite

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// LoadConfig reads database settings from the environment and applies
// defaults.
func LoadConfig() Config {
	cfg := Config{Path: strings.TrimSpace(os.Getenv("JURICODE_DB"))}
	if openConns := strings.TrimSpace(os.Getenv("JURICODE_DB_MAX_OPEN_CONNS")); openConns != "" {
		if value, err := strconv.Atoi(openConns); err == nil && value > 0 {
			cfg.MaxOpenConns = value
		}
	}
	if idleConns := strings.TrimSpace(os.Getenv("JURICODE_DB_MAX_IDLE_CONNS")); idleConns != "" {
		if value, err := strconv.Atoi(idleConns); err == nil && value > 0 {
			cfg.MaxIdleConns = value
		}
	}
	if lifetime := strings.TrimSpace(os.Getenv("JURICODE_DB_CONN_MAX_LIFETIME")); lifetime != "" {
		if parsed, err := time.ParseDuration(lifetime); err == nil {
			cfg.ConnMaxLifetime = parsed
		}
	}
	if busy := strings.TrimSpace(os.Getenv("JURICODE_DB_BUSY_TIMEOUT")); busy != "" {
		if parsed, err := time.ParseDuration(busy); err == nil {
			cfg.BusyTimeout = parsed
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = filepath.Join("data", "juricode.db")
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}
