// Package config reads the booking import service settings from the
// environment. Each section checks its own values and Load reports every
// problem it finds in one error.
package config

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// section is a part of Config that can vet its own values.
type section interface {
	check() []string
}

func (c *Config) sections() []section {
	return []section{c.Server, c.Database, c.Import, c.Rate, c.Security, c.Logging}
}

// Validate runs the checks of every section.
func (c *Config) Validate() error {
	var problems []string
	for _, s := range c.sections() {
		problems = append(problems, s.check()...)
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%d invalid setting(s):\n  - %s", len(problems), strings.Join(problems, "\n  - "))
}

// String renders the configuration for logs. Secrets are masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{server=%s db=[MASKED] pool=%d..%d import={sheet=%q max_size=%d workers=%d timeout=%s} rate=%t/%d api_keys=%d log=%s/%s}",
		c.Server.Addr(), c.Database.MinConns, c.Database.MaxConns,
		c.Import.DefaultSheet, c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Timeout,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format)
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port        int           `env:"SERVER_PORT" default:"8080"`
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	// Zero leaves responses bounded by RequestTimeout alone.
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	// RequestTimeout must outlast IMPORT_TIMEOUT plus the slot wait.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"6m"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) check() []string {
	var out []string
	if c.Port < 1 || c.Port > 65535 {
		out = append(out, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		out = append(out, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT cannot be negative")
	}
	if c.ShutdownTimeout <= 0 {
		out = append(out, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return out
}

// DatabaseConfig holds the booking store connection settings.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
	// Migrate applies the embedded bookings schema on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

func (c DatabaseConfig) check() []string {
	var out []string
	if c.URL == "" {
		out = append(out, "DATABASE_URL is required")
	}
	switch {
	case c.MaxConns <= 0:
		out = append(out, "DB_MAX_CONNS must be positive")
	case c.MinConns < 0:
		out = append(out, "DB_MIN_CONNS cannot be negative")
	case c.MinConns > c.MaxConns:
		out = append(out, fmt.Sprintf("DB_MAX_CONNS (%d) is below DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
	}
	return out
}

// RateLimitConfig holds per-IP request budgets per minute.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	// ImportLimit applies to the detect and resolve endpoints.
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

func (c RateLimitConfig) check() []string {
	if !c.Enabled {
		return nil
	}
	var out []string
	if c.RequestsPerMinute <= 0 {
		out = append(out, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.ImportLimit <= 0 {
		out = append(out, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}
	return out
}

// SecurityConfig holds proxy trust and API key settings.
type SecurityConfig struct {
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
	EnableCSP      bool     `env:"SECURITY_ENABLE_CSP" default:"true"`
	// RequireAPIKey guards /api with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY"`
	APIKeys       []string `env:"API_KEYS"`
}

func (c SecurityConfig) check() []string {
	var out []string
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		out = append(out, "REQUIRE_API_KEY is set but API_KEYS is empty")
	}
	for _, cidr := range c.TrustedProxies {
		if !validProxy(cidr) {
			out = append(out, fmt.Sprintf("TRUSTED_PROXIES entry %q is neither an IP nor a CIDR", cidr))
		}
	}
	return out
}

func validProxy(entry string) bool {
	if _, err := netip.ParsePrefix(entry); err == nil {
		return true
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

func (c LoggingConfig) check() []string {
	var out []string
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		out = append(out, fmt.Sprintf("LOG_LEVEL (%q) must be debug, info, warn or error", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		out = append(out, fmt.Sprintf("LOG_FORMAT (%q) must be text or json", c.Format))
	}
	return out
}
