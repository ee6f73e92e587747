// Package config loads the blog's runtime settings from the environment,
// after overlaying an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // BLOG_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the blog server.
type Config struct {
	Addr    string `env:"BLOG_ADDR"     envDefault:":5000"`
	BaseURL string `env:"BLOG_BASE_URL" envDefault:"http://localhost:5000"`

	// DBDriver is "sqlite" (DBDSN is a file path) or "postgres" (DBDSN is a connection URL)
	DBDriver string `env:"BLOG_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"BLOG_DB_DSN"    envDefault:"blog.db"`

	// SecretKey signs auth tokens. A random key is used when empty, which logs
	// everybody out on restart.
	SecretKey      string        `env:"BLOG_SECRET_KEY"`
	SessionTimeout time.Duration `env:"BLOG_SESSION_TIMEOUT" envDefault:"24h"`
	SecureCookies  bool          `env:"BLOG_SECURE_COOKIES"  envDefault:"false"`

	// Timezone posts are stamped in
	Timezone string `env:"BLOG_TIMEZONE" envDefault:"Asia/Tokyo"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	ReadTimeout     time.Duration `env:"BLOG_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"BLOG_WRITE_TIMEOUT"    envDefault:"15s"`
	IdleTimeout     time.Duration `env:"BLOG_IDLE_TIMEOUT"     envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"BLOG_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads dotenvPath (if it exists) into the environment without
// overriding variables that are already set, then parses Config.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DotenvPath is where Load looks for a .env file unless BLOG_DOTENV says otherwise
func DotenvPath() string {
	if p := strings.TrimSpace(os.Getenv("BLOG_DOTENV")); p != "" {
		return p
	}
	return ".env"
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("BLOG_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid BLOG_TIMEZONE %q: %w", c.Timezone, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("BLOG_SESSION_TIMEOUT must be positive")
	}
	return nil
}

// GoogleEnabled reports whether federated login can be offered
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleCallbackURL is the redirect URI registered with Google
func (c *Config) GoogleCallbackURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/callback"
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat ("text" or "json")
func (c *Config) NewLogger() *slog.Logger {
	lvl, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
