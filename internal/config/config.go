package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
)

// Config holds the run settings.
type Config struct {
	SecretKey   string `yaml:"secret_key" env:"LE_PLESK_SECRET_KEY"`
	SecurePanel bool   `yaml:"secure_panel" env:"LE_PLESK_SECURE_PANEL"`

	Host   string `yaml:"host" env:"LE_PLESK_HOST"`
	Port   int    `yaml:"port" env:"LE_PLESK_PORT"`
	Scheme string `yaml:"scheme" env:"LE_PLESK_SCHEME"`

	Root   string `yaml:"root" env:"LE_PLESK_ROOT"`
	Target string `yaml:"target" env:"LE_PLESK_TARGET"`

	Email        string `yaml:"email" env:"LE_PLESK_EMAIL"`
	DirectoryURL string `yaml:"directory_url" env:"LE_PLESK_DIRECTORY_URL"`
}

// DefaultDirectoryURL is the Let's Encrypt production directory.
const DefaultDirectoryURL = "https://acme-v02.api.letsencrypt.org/directory"

const configDir = ".config/pleskcert"
const configFile = "config.yaml"

// New creates a Config with default values
func New() *Config {
	return &Config{
		DirectoryURL: DefaultDirectoryURL,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the default config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration. An empty path means the default file,
// which may be missing; an explicit path must exist. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := New()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeConfig, "failed to parse config "+path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, perrors.Wrap(perrors.ErrCodeConfig, "failed to read config", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeConfig, "invalid environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	c.Scheme = strings.ToLower(strings.TrimSpace(c.Scheme))
	switch c.Scheme {
	case "", "http", "https":
	default:
		return perrors.Wrap(perrors.ErrCodeConfig, "invalid scheme",
			fmt.Errorf("%q is not http or https", c.Scheme))
	}
	if c.Port < 0 || c.Port > 65535 {
		return perrors.Wrap(perrors.ErrCodeConfig, "invalid port", fmt.Errorf("%d out of range", c.Port))
	}
	if c.DirectoryURL == "" {
		c.DirectoryURL = DefaultDirectoryURL
	}
	return nil
}
