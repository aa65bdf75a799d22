package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings. Values come from the defaults, then an
// optional YAML file, then the environment, then command-line flags.
type Config struct {
	Port        string        `yaml:"port" env:"PORT"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL"`
	ProjectID   string        `yaml:"gcp_project_id" env:"GCP_PROJECT_ID"`
	Region      string        `yaml:"gcp_region" env:"GCP_REGION"`
	Model       string        `yaml:"gemini_model" env:"GEMINI_MODEL"`
	MaxUploadMB int64         `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB"`
	SessionTTL  time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	ReapEvery   time.Duration `yaml:"reap_every" env:"REAP_EVERY"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Port:        "8080",
		LogLevel:    "info",
		Region:      defaultRegion,
		Model:       defaultModel,
		MaxUploadMB: 10,
		SessionTTL:  2 * time.Hour,
		ReapEvery:   time.Minute,
	}
}

// LoadConfig reads the YAML file at path (if any) over the defaults and
// applies environment overrides. The result is not validated yet: flags may
// still override it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max upload must be positive, got %d", c.MaxUploadMB))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL))
	}
	if c.ReapEvery <= 0 {
		errs = append(errs, fmt.Errorf("reap interval must be positive, got %s", c.ReapEvery))
	}
	return errors.Join(errs...)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
