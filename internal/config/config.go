// ABOUTME: Configuration loading for the keepsake backend
// ABOUTME: Optional YAML file with ${ENV} expansion plus BACKEND_* environment overrides

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete keepsake configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the SQLite database path
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UploadsConfig holds the attachment directory path
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	APIKey    string `yaml:"api_key"`
	AdminUser string `yaml:"admin_user"`
	AdminPass string `yaml:"admin_pass"`

	TokenTTL time.Duration `yaml:"-"`

	// Raw duration string for YAML unmarshaling, e.g. "12h"
	TokenTTLRaw string `yaml:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaultConfig returns the compiled-in development defaults. They match
// the companion front-end's expectations for a zero-config local run.
func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "localhost:3001"},
		Database: DatabaseConfig{Path: "data/keepsake.db"},
		Uploads:  UploadsConfig{Dir: "uploads"},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret",
			APIKey:    "dev-key",
			AdminUser: "admin",
			AdminPass: "password",
			TokenTTL:  12 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from the optional YAML file at path and
// the BACKEND_* environment variables. Precedence, lowest to highest:
// compiled-in defaults, config file, environment. An empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw YAML content
		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}

		if cfg.Auth.TokenTTLRaw != "" {
			cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
			if err != nil {
				return nil, fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv overrides config values from BACKEND_* environment variables.
// The names match the ones the original deployment used.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("BACKEND_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("BACKEND_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BACKEND_UPLOADS_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}
	if v := os.Getenv("BACKEND_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("BACKEND_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("BACKEND_ADMIN_USER"); v != "" {
		cfg.Auth.AdminUser = v
	}
	if v := os.Getenv("BACKEND_ADMIN_PASS"); v != "" {
		cfg.Auth.AdminPass = v
	}
	if v := os.Getenv("BACKEND_JWT_EXP"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("parsing BACKEND_JWT_EXP %q: must be a positive number of seconds", v)
		}
		cfg.Auth.TokenTTL = time.Duration(secs) * time.Second
	}

	return nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	return nil
}
