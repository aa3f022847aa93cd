// Package config loads CLI-level defaults for claude-memory: database
// path, projects root, and logging verbosity. Layering is flags > env >
// config file > built-in defaults, following viper's standard precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete CLI-level configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Claude  ClaudeConfig  `mapstructure:"claude"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig locates the SQLite archive.
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ClaudeConfig locates the source log tree.
type ClaudeConfig struct {
	HomeDirectory string `mapstructure:"home_directory"`
	ProjectsPath  string `mapstructure:"projects_path"`
}

// LoggingConfig controls ambient log verbosity.
type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns built-in defaults, honoring CLAUDE_DIR when set.
func DefaultConfig() *Config {
	claudeDir := os.Getenv("CLAUDE_DIR")
	if claudeDir == "" {
		homeDir, _ := os.UserHomeDir()
		claudeDir = filepath.Join(homeDir, ".claude")
	}

	homeDir, _ := os.UserHomeDir()

	return &Config{
		Store: StoreConfig{
			DBPath: filepath.Join(homeDir, ".claude-memory", "conversations.db"),
		},
		Claude: ClaudeConfig{
			HomeDirectory: claudeDir,
			ProjectsPath:  filepath.Join(claudeDir, "projects"),
		},
		Logging: LoggingConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from flags (via caller overrides), env
// vars (CM_* prefix), an optional config file, and defaults, in that
// precedence order.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "claude-memory"))
		}
	}

	v.SetEnvPrefix("CM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("store.db_path", defaults.Store.DBPath)
	v.SetDefault("claude.home_directory", defaults.Claude.HomeDirectory)
	v.SetDefault("claude.projects_path", defaults.Claude.ProjectsPath)
	v.SetDefault("logging.debug", defaults.Logging.Debug)
}

// GetConfigPath returns where a user config file would live.
func GetConfigPath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "claude-memory", "config.yaml")
	}
	return "config.yaml"
}
