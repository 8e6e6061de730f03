// File path: internal/githost/config.go
package githost

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	Token   string

	Timeout             time.Duration
	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPIdleConnTimeout time.Duration
}

// LoadConfig reads hosting-API settings from the environment and applies
// defaults suitable for the public GitHub REST endpoint.
func LoadConfig() Config {
	cfg := Config{
		BaseURL: strings.TrimSpace(os.Getenv("GITHUB_API_URL")),
		Token:   strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
	}
	if timeoutStr := strings.TrimSpace(os.Getenv("GITHUB_HTTP_TIMEOUT")); timeoutStr != "" {
		if parsed, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = parsed
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = "https://api.github.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = 16
	}
	if c.HTTPMaxIdlePerHost <= 0 {
		c.HTTPMaxIdlePerHost = 8
	}
	if c.HTTPIdleConnTimeout <= 0 {
		c.HTTPIdleConnTimeout = 90 * time.Second
	}
}
