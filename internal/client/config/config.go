// Package config loads taskctl settings from ~/.taskctl/config.yaml and
// TASKCTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server is the taskboard base URL, e.g. http://localhost:8080.
	Server string `mapstructure:"server"`
	// APIURL defaults to Server + /api/v1.
	APIURL string `mapstructure:"api_url"`
	// RealtimeURL defaults to Server with a ws scheme + /ws.
	RealtimeURL     string        `mapstructure:"realtime_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay"`
	CredentialsPath string        `mapstructure:"credentials_path"`
	// Bypass signs in as a fixed privileged identity without a server.
	// Development only.
	Bypass   bool   `mapstructure:"bypass"`
	LogLevel string `mapstructure:"log_level"`
}

// Dir returns ~/.taskctl.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskctl"
	}
	return filepath.Join(home, ".taskctl")
}

// DefaultPath returns ~/.taskctl/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path (DefaultPath when empty). A missing file is not an error;
// environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("api_url", "")
	v.SetDefault("realtime_url", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("reconnect_delay", 3*time.Second)
	v.SetDefault("credentials_path", filepath.Join(Dir(), "credentials.yaml"))
	v.SetDefault("bypass", false)
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("TASKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.complete(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// complete fills derived URLs and validates the result.
func (c *Config) complete() error {
	c.Server = strings.TrimRight(c.Server, "/")
	base, err := url.Parse(c.Server)
	if err != nil || base.Host == "" {
		return fmt.Errorf("server %q is not an absolute URL", c.Server)
	}

	if c.APIURL == "" {
		c.APIURL = c.Server + "/api/v1"
	}
	if c.RealtimeURL == "" {
		ws := *base
		switch base.Scheme {
		case "https":
			ws.Scheme = "wss"
		default:
			ws.Scheme = "ws"
		}
		ws.Path = strings.TrimRight(base.Path, "/") + "/ws"
		c.RealtimeURL = ws.String()
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("reconnect_delay must be positive")
	}
	return nil
}
