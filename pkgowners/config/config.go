package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/pkgowners/pkgowners"

	"github.com/spf13/viper"
)

// Index strategies accepted by index.strategy.
const (
	StrategyBasename = "basename"
	StrategyHashed   = "hashed"
)

var ErrInvalidStrategy = errors.New("invalid index strategy")

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Index    IndexConfig    `mapstructure:"index"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig locates the installed-package database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	// Snapshot copies the database into a scratch directory before reading it.
	Snapshot bool `mapstructure:"snapshot"`
}

// IndexConfig selects how the file ownership index is built.
type IndexConfig struct {
	Strategy  string `mapstructure:"strategy"`
	Reconcile bool   `mapstructure:"reconcile"`
	Sysroot   string `mapstructure:"sysroot"`
	Workers   int    `mapstructure:"workers"`
}

// LogConfig stores logging options.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("database.path", internal.DefaultDatabaseDSN)
	v.SetDefault("database.snapshot", true)
	v.SetDefault("index.strategy", internal.DefaultIndexStrategy)
	v.SetDefault("index.reconcile", true)
	v.SetDefault("index.sysroot", internal.DefaultSysroot)
	v.SetDefault("index.workers", 8)
	v.SetDefault("log.level", internal.DefaultLogLevel)

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // index.strategy becomes PKGOWNERS_INDEX_STRATEGY

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &cfg, nil
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Index.Strategy {
	case StrategyBasename, StrategyHashed:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidStrategy, c.Index.Strategy, StrategyBasename, StrategyHashed)
	}
	if c.Index.Workers < 1 {
		c.Index.Workers = 1
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	return nil
}
