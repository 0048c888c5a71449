package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Logger   LoggerConfig `envconfig:"LOG"`
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string        `default:"localhost"`
	Port            int           `default:"8084"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

type UploadConfig struct {
	MaxBytes   int64         `split_words:"true" default:"10485760"`
	SessionTTL time.Duration `split_words:"true" default:"2h"`
	// DefaultWorkbook is served to visitors without an upload of their own.
	DefaultWorkbook string `split_words:"true"`
}

type LoggerConfig struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

type SecurityConfig struct {
	RateLimitEnabled bool     `split_words:"true" default:"true"`
	RateLimitRPS     int      `split_words:"true" default:"100"`
	RateLimitBurst   int      `split_words:"true" default:"20"`
	AllowedOrigins   []string `split_words:"true" default:"http://localhost:8084"`
	TrustedProxies   []string `split_words:"true" default:"127.0.0.1"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")
	check(c.Upload.MaxBytes > 0, "upload max bytes must be positive")
	check(c.Upload.SessionTTL > 0, "upload session TTL must be positive")
	check(slices.Contains(validLogLevels, c.Logger.Level),
		"invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	check(slices.Contains(validLogFormats, c.Logger.Format),
		"invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	if c.Security.RateLimitEnabled {
		check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
		check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")
	}

	return errors.Join(errs...)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
