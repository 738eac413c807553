package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for the fetch daemon.
type Config struct {
	// S3I Thing credentials (required).
	ClientID     string `env:"S3I_CLIENT_ID"`
	ClientSecret string `env:"S3I_CLIENT_SECRET"`

	// Queue names. When empty, defaults are derived from the client id
	// at Thing construction (with a warning).
	MessageQueue string `env:"S3I_MESSAGE_QUEUE"`
	EventQueue   string `env:"S3I_EVENT_QUEUE"`

	// Endpoint overrides. Empty selects the library defaults.
	IdPURL    string `env:"S3I_IDP_URL"`
	BrokerURL string `env:"S3I_BROKER_URL"`

	// FetchInterval is the period between fetch passes.
	FetchInterval time.Duration `env:"FETCH_INTERVAL" envDefault:"30s"`

	// StorePath is the inbox database location. When empty it defaults
	// to ~/.expco/inbox.db.
	StorePath string `env:"STORE_PATH"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:""`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.StorePath == "" {
		path, err := DefaultStorePath()
		if err != nil {
			return nil, err
		}

		cfg.StorePath = path
	}

	// Resolve to an absolute path so the daemon is immune to later
	// working-directory changes.
	absPath, err := filepath.Abs(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}

	cfg.StorePath = absPath

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("S3I_CLIENT_ID is required")
	}

	if c.ClientSecret == "" {
		return fmt.Errorf("S3I_CLIENT_SECRET is required")
	}

	if c.FetchInterval <= 0 {
		return fmt.Errorf("FETCH_INTERVAL must be positive, got %s", c.FetchInterval)
	}

	return nil
}

// DefaultStorePath returns the default inbox database location:
// ~/.expco/inbox.db
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".expco", "inbox.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
