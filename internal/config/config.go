// Package config provides configuration management for panelctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PANELCTL"

// Config represents the application configuration structure
type Config struct {
	Source    string         `mapstructure:"source" validate:"oneof=postgres inventory"`     // Where servers are read from
	Inventory string         `mapstructure:"inventory" validate:"required_if=Source inventory"` // Inventory file when source is inventory
	Database  DatabaseConfig `mapstructure:"database"`
	Daemon    DaemonConfig   `mapstructure:"daemon"`
	Output    string         `mapstructure:"output" validate:"oneof=text json"`            // Summary format
	Quiet     bool           `mapstructure:"quiet"`                                        // Suppress progress and info logs
	Progress  bool           `mapstructure:"progress"`                                     // Render the progress bar
	LogLevel  string         `mapstructure:"log-level" validate:"oneof=debug info error"`  // Log level
	LogFormat string         `mapstructure:"log-format" validate:"oneof=json text"`        // Log format
	Locale    string         `mapstructure:"locale" validate:"required"`                   // Message language
}

// DatabaseConfig holds panel database settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
}

// DaemonConfig holds transport settings for daemon calls
type DaemonConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
}

// Manager defines the interface for configuration management
type Manager interface {
	// Load reads configuration from all sources (files, panel .env, env vars)
	Load() (*Config, error)

	// SetDefaults establishes default configuration values
	SetDefaults()

	// Validate ensures configuration values are valid and consistent
	Validate(config *Config) error
}

// ViperManager implements the Manager interface using Viper
type ViperManager struct {
	v          *viper.Viper
	validate   *validator.Validate
	configFile string
	envFile    string
}

// Option customises a ViperManager
type Option func(*ViperManager)

// WithConfigFile reads exactly this file instead of searching the default paths
func WithConfigFile(path string) Option {
	return func(m *ViperManager) { m.configFile = path }
}

// WithEnvFile reads database credentials from a panel .env file
func WithEnvFile(path string) Option {
	return func(m *ViperManager) { m.envFile = path }
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) Manager {
	m := &ViperManager{
		v:        viper.New(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDefaults establishes default configuration values
func (m *ViperManager) SetDefaults() {
	m.v.SetDefault("source", "postgres")
	m.v.SetDefault("inventory", "")
	m.v.SetDefault("database.host", "127.0.0.1")
	m.v.SetDefault("database.port", 5432)
	m.v.SetDefault("database.user", "pterodactyl")
	m.v.SetDefault("database.password", "")
	m.v.SetDefault("database.name", "panel")
	m.v.SetDefault("database.sslmode", "disable")
	m.v.SetDefault("daemon.timeout", 30*time.Second)
	m.v.SetDefault("daemon.connect-timeout", 10*time.Second)
	m.v.SetDefault("output", "text")
	m.v.SetDefault("quiet", false)
	m.v.SetDefault("progress", true)
	m.v.SetDefault("log-level", "info")
	m.v.SetDefault("log-format", "text")
	m.v.SetDefault("locale", "en")
}

// Load reads configuration from all sources with proper precedence:
// environment > panel .env > config file > defaults
func (m *ViperManager) Load() (*Config, error) {
	m.SetDefaults()

	m.v.SetEnvPrefix(envPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	m.v.AutomaticEnv()

	if err := m.readConfigFile(); err != nil {
		return nil, err
	}

	if m.envFile != "" {
		if err := m.applyEnvFile(m.envFile); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func (m *ViperManager) readConfigFile() error {
	if m.configFile != "" {
		m.v.SetConfigFile(m.configFile)
		if err := m.v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", m.configFile, err)
		}
		return nil
	}

	m.v.SetConfigName("config")
	m.v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		m.v.AddConfigPath(filepath.Join(homeDir, ".config", "panelctl"))
	}
	m.v.AddConfigPath("/etc/panelctl/")

	for _, format := range []string{"yaml", "yml", "json", "toml"} {
		m.v.SetConfigType(format)
		if err := m.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading %s config file: %w", format, err)
			}
		} else {
			break
		}
	}
	return nil
}

// panelEnvKeys maps panel .env variables to configuration keys
var panelEnvKeys = map[string]string{
	"DB_HOST":     "database.host",
	"DB_PORT":     "database.port",
	"DB_DATABASE": "database.name",
	"DB_USERNAME": "database.user",
	"DB_PASSWORD": "database.password",
}

// applyEnvFile copies database settings from a panel .env file unless the
// matching PANELCTL_ variable is set in the process environment
func (m *ViperManager) applyEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}

	for envKey, key := range panelEnvKeys {
		value, ok := values[envKey]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(envVarName(key)); set {
			continue
		}
		if err := m.setConfigValue(key, value); err != nil {
			return fmt.Errorf("error setting %s from %s: %w", key, path, err)
		}
	}
	return nil
}

// setConfigValue sets a configuration value with proper type conversion
func (m *ViperManager) setConfigValue(key, value string) error {
	switch key {
	case "database.port":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		m.v.Set(key, intVal)
	default:
		m.v.Set(key, value)
	}
	return nil
}

// Validate ensures configuration values are valid and consistent
func (m *ViperManager) Validate(config *Config) error {
	if err := m.validate.Struct(config); err != nil {
		return err
	}

	if config.Daemon.Timeout <= 0 {
		return fmt.Errorf("daemon.timeout must be positive, got %v", config.Daemon.Timeout)
	}
	if config.Daemon.ConnectTimeout <= 0 {
		return fmt.Errorf("daemon.connect-timeout must be positive, got %v", config.Daemon.ConnectTimeout)
	}
	if config.Daemon.ConnectTimeout > config.Daemon.Timeout {
		return fmt.Errorf("daemon.connect-timeout (%v) must not exceed daemon.timeout (%v)",
			config.Daemon.ConnectTimeout, config.Daemon.Timeout)
	}

	return nil
}

func envVarName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// GetEnvVarNames returns a list of all supported environment variable names
func GetEnvVarNames() []string {
	keys := []string{
		"source", "inventory",
		"database.host", "database.port", "database.user", "database.password", "database.name", "database.sslmode",
		"daemon.timeout", "daemon.connect-timeout",
		"output", "quiet", "progress", "log-level", "log-format", "locale",
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, envVarName(k))
	}
	return names
}
