// Package config handles the rnxfix configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file.
const (
	EnvGfzrnx  = "RNXFIX_GFZRNX"
	EnvStation = "RNXFIX_STATION"
)

// Config holds the rnxfix configuration.
type Config struct {
	Gfzrnx  GfzrnxConfig  `yaml:"gfzrnx"`
	Fix     FixConfig     `yaml:"fix"`
	Logging LoggingConfig `yaml:"logging"`
}

// GfzrnxConfig configures the gfzrnx calls.
type GfzrnxConfig struct {
	Path          string `yaml:"path"`                                  // executable, empty means lookup in PATH
	OutputVersion int    `yaml:"output_version" validate:"oneof=2 3 4"` // RINEX version of corrected files
	Timeout       string `yaml:"timeout"`                               // per call, e.g. "10m"
}

// FixConfig configures the correction of files.
type FixConfig struct {
	Station        string `yaml:"station" validate:"omitempty,alphanum,len=4|len=9"` // 4- or 9-char ID for the corrected filename
	BackupSuffix   string `yaml:"backup_suffix" validate:"required,excludesall=/"`
	TempSuffix     string `yaml:"temp_suffix" validate:"required,excludesall=/,nefield=BackupSuffix"`
	CompressBackup bool   `yaml:"compress_backup"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Gfzrnx: GfzrnxConfig{
			OutputVersion: 2,
			Timeout:       "10m",
		},
		Fix: FixConfig{
			BackupSuffix: ".ORIGINAL",
			TempSuffix:   ".FIXED",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the path of the configuration file,
// $XDG_CONFIG_HOME/rnxfix/config.yaml on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".rnxfix", "config.yaml")
	}
	return filepath.Join(dir, "rnxfix", "config.yaml")
}

// Load loads the configuration from a YAML file. The defaults are returned
// if the file does not exist. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile loads the configuration like Load, but without the environment
// overrides. Use it for a configuration that is saved again.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// use a single instance of Validate, it caches struct info
var validate = validator.New()

// Validate checks the configuration values.
func (c *Config) Validate() error {
	c.Fix.Station = strings.ToUpper(strings.TrimSpace(c.Fix.Station))
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Gfzrnx.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, zero if not set.
func (g GfzrnxConfig) TimeoutDuration() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0, fmt.Errorf("gfzrnx timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("gfzrnx timeout: negative duration %s", g.Timeout)
	}
	return d, nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv(EnvGfzrnx); path != "" {
		c.Gfzrnx.Path = path
	}
	if station := os.Getenv(EnvStation); station != "" {
		c.Fix.Station = station
	}
}
