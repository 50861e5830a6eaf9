// Package config loads ledgerctl settings.
// Precedence: environment > YAML file > defaults. A .env in the working
// directory is read into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ledgerdesk/internal/client/approval"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL          string        `yaml:"api_url"`
	CredentialsFile string        `yaml:"credentials_file"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
}

func Defaults() Config {
	return Config{
		APIURL:          "http://localhost:8000/api",
		PollInterval:    approval.DefaultInterval,
		ApprovalTimeout: 10 * time.Minute,
		HTTPTimeout:     30 * time.Second,
	}
}

// DefaultPath is $LEDGERCTL_CONFIG or ledgerctl.yaml under the user config dir.
func DefaultPath() string {
	if p := os.Getenv("LEDGERCTL_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "ledgerctl.yaml"
	}
	return filepath.Join(dir, "ledgerdesk", "ledgerctl.yaml")
}

// Load reads path (skipped when missing) and applies the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg.APIURL = getEnv("LEDGERDESK_API_URL", cfg.APIURL)
	cfg.CredentialsFile = getEnv("LEDGERDESK_CREDENTIALS", cfg.CredentialsFile)
	cfg.PollInterval = getEnvDuration("LEDGERDESK_POLL_INTERVAL", cfg.PollInterval)
	cfg.ApprovalTimeout = getEnvDuration("LEDGERDESK_APPROVAL_TIMEOUT", cfg.ApprovalTimeout)
	cfg.HTTPTimeout = getEnvDuration("LEDGERDESK_HTTP_TIMEOUT", cfg.HTTPTimeout)

	if cfg.APIURL == "" {
		return cfg, errors.New("api_url is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = approval.DefaultInterval
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
