// Package config loads pdfdesk settings from defaults, a YAML file,
// PDFDESK_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
)

const (
	configName = "pdfdesk"
	envPrefix  = "PDFDESK"
)

// Config holds application configuration
type Config struct {
	DataPath   string        `mapstructure:"data_path" yaml:"data_path"`
	Storage    StorageConfig `mapstructure:"storage" yaml:"storage"`
	ListenAddr string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel   string        `mapstructure:"log_level" yaml:"log_level"`
	Quotes     QuotesConfig  `mapstructure:"quotes" yaml:"quotes"`
	StaticDir  string        `mapstructure:"static_dir" yaml:"static_dir"`

	// File is the config file that was read, if any
	File string `mapstructure:"-" yaml:"-"`
}

// StorageConfig selects the durable store
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// QuotesConfig tunes the quote API client
type QuotesConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries int           `mapstructure:"retries" yaml:"retries"`
}

// GetDefaultDataPath returns the directory holding the durable store
func GetDefaultDataPath() string {
	currentUser, err := user.Current()
	if err != nil {
		return "./data"
	}
	return filepath.Join(currentUser.HomeDir, ".local", "share", "pdfdesk")
}

// GetConfigDir returns the per-user config directory
func GetConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "pdfdesk")
}

// GetConfigFilePath returns where Save writes by default
func GetConfigFilePath() string {
	return filepath.Join(GetConfigDir(), configName+".yaml")
}

// Defaults returns the built-in settings keyed the way viper sees them
func Defaults() map[string]any {
	return map[string]any{
		"data_path":       GetDefaultDataPath(),
		"storage.backend": kvstore.BackendFile,
		"listen_addr":     "127.0.0.1:8080",
		"log_level":       "info",
		"quotes.timeout":  "10s",
		"quotes.retries":  2,
		"static_dir":      "./static",
	}
}

// Load resolves the configuration. explicitPath, when set, must exist;
// otherwise pdfdesk.yaml is searched in the user config dir, /etc/pdfdesk
// and the working directory, and a missing file is not an error.
func Load(flags *pflag.FlagSet, explicitPath string) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath("/etc/pdfdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigLoadFailed.Code, "failed to bind flags")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); explicitPath != "" || !notFound {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigLoadFailed.Code, "failed to read config file").
				WithUserMessage(errors.ErrConfigLoadFailed.UserMessage).
				WithContext("path", explicitPath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigLoadFailed.Code, "failed to decode config").
			WithUserMessage(errors.ErrConfigLoadFailed.UserMessage)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case kvstore.BackendFile, kvstore.BackendSQLite, kvstore.BackendMemory:
	default:
		return errors.New(errors.ErrTypeConfig, "INVALID_BACKEND",
			fmt.Sprintf("unknown storage backend %q", c.Storage.Backend)).
			WithUserMessage("storage.backend must be file, sqlite or memory")
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "INVALID_LOG_LEVEL", "invalid log level").
			WithUserMessage("log_level must be debug, info, warn or error").
			WithContext("log_level", c.LogLevel)
	}
	if strings.TrimSpace(c.DataPath) == "" && c.Storage.Backend != kvstore.BackendMemory {
		return errors.New(errors.ErrTypeConfig, "DATA_PATH_EMPTY", "data_path is empty").
			WithUserMessage("data_path is required")
	}
	if c.Quotes.Retries < 0 {
		c.Quotes.Retries = 0
	}
	return nil
}

// EnsureDirs creates the data directory
func (c *Config) EnsureDirs() error {
	if c.Storage.Backend == kvstore.BackendMemory {
		return nil
	}
	return os.MkdirAll(c.DataPath, 0755)
}

// Save writes the configuration as YAML to path, or to the user config
// file when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigSaveFailed.Code, "failed to create config dir").
			WithUserMessage(errors.ErrConfigSaveFailed.UserMessage)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigSaveFailed.Code, "failed to encode config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, errors.ErrConfigSaveFailed.Code, "failed to write config").
			WithUserMessage(errors.ErrConfigSaveFailed.UserMessage).
			WithContext("path", path)
	}
	return nil
}
