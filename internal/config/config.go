// Package config loads the boarding admin configuration: built-in defaults,
// an optional YAML file, then BOARDING_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Addr            string        `yaml:"addr" env:"BOARDING_ADDR"`
	BasePath        string        `yaml:"base_path" env:"BOARDING_BASE_PATH"`
	GraphQLEndpoint string        `yaml:"graphql_endpoint" env:"BOARDING_GRAPHQL_ENDPOINT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"BOARDING_REQUEST_TIMEOUT"`
	Token           string        `yaml:"token" env:"BOARDING_TOKEN"`
	JWTKey          string        `yaml:"jwt_key" env:"BOARDING_JWT_KEY"`
	DefaultTheme    string        `yaml:"default_theme" env:"BOARDING_DEFAULT_THEME"`
	Themes          []string      `yaml:"themes" env:"BOARDING_THEMES" envSeparator:","`
	Locale          string        `yaml:"locale" env:"BOARDING_LOCALE"`
	Debug           bool          `yaml:"debug" env:"BOARDING_DEBUG"`
	Uploads         Uploads       `yaml:"uploads" envPrefix:"BOARDING_UPLOADS_"`

	// SignOutOnSettingsFailure escalates a failed settings read to sign-out.
	SignOutOnSettingsFailure bool `yaml:"sign_out_on_settings_failure" env:"BOARDING_SIGN_OUT_ON_SETTINGS_FAILURE"`
}

// Uploads configures the upload storage collaborator.
type Uploads struct {
	Dir      string `yaml:"dir" env:"DIR"`
	Database string `yaml:"database" env:"DATABASE"`
	// PublicPath is the URL prefix stored files are served under.
	PublicPath string `yaml:"public_path" env:"PUBLIC_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                     ":8080",
		BasePath:                 "",
		GraphQLEndpoint:          "http://localhost:8081/api",
		RequestTimeout:           30 * time.Second,
		DefaultTheme:             "default",
		Locale:                   "en",
		SignOutOnSettingsFailure: true,
		Uploads: Uploads{
			Dir:        "data/uploads",
			Database:   "data/uploads.db",
			PublicPath: "/files",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if strings.TrimSpace(c.GraphQLEndpoint) == "" {
		errs = append(errs, errors.New("graphql_endpoint is required"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	if strings.TrimSpace(c.DefaultTheme) == "" {
		errs = append(errs, errors.New("default_theme is required"))
	}
	if strings.TrimSpace(c.Uploads.Dir) == "" || strings.TrimSpace(c.Uploads.Database) == "" {
		errs = append(errs, errors.New("uploads.dir and uploads.database are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
