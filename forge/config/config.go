package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/tokenizer-forge/forge"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Trainer TrainerConfig `mapstructure:"trainer"`
	Output  OutputConfig  `mapstructure:"output"`
	History HistoryConfig `mapstructure:"history"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Log     LogConfig     `mapstructure:"log"`
}

// TrainerConfig stores defaults for a training run.
type TrainerConfig struct {
	VocabSize    int `mapstructure:"vocabSize"`
	MaxLen       int `mapstructure:"maxLen"`
	MinFrequency int `mapstructure:"minFrequency"`
}

// OutputConfig stores the default artifact directory.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// HistoryConfig stores run-history database details.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// WatchConfig stores debounce settings for watch mode.
type WatchConfig struct {
	DebounceMillis    int `mapstructure:"debounceMillis"`
	MaxDebounceMillis int `mapstructure:"maxDebounceMillis"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("trainer.vocabSize", internal.DefaultInlineVocab)
	v.SetDefault("trainer.maxLen", internal.DefaultInlineMaxLen)
	v.SetDefault("trainer.minFrequency", 0)
	v.SetDefault("output.dir", "")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", internal.DefaultHistoryDSN)
	v.SetDefault("watch.debounceMillis", internal.DefaultDebounceMillis)
	v.SetDefault("watch.maxDebounceMillis", 10*internal.DefaultDebounceMillis)
	v.SetDefault("log.level", internal.DefaultLogLevel)
	v.SetDefault("log.format", internal.DefaultLogFormat)

	// trainer.vocabSize becomes TKFORGE_TRAINER_VOCABSIZE
	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
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

// Validate rejects values no run could use.
func (c *Config) Validate() error {
	if c.Trainer.VocabSize <= 0 {
		return fmt.Errorf("trainer.vocabSize must be positive, got %d", c.Trainer.VocabSize)
	}
	if c.Trainer.MaxLen <= 0 {
		return fmt.Errorf("trainer.maxLen must be positive, got %d", c.Trainer.MaxLen)
	}
	if c.Trainer.MinFrequency < 0 {
		return fmt.Errorf("trainer.minFrequency cannot be negative, got %d", c.Trainer.MinFrequency)
	}
	if c.Watch.DebounceMillis < 0 || c.Watch.MaxDebounceMillis < 0 {
		return fmt.Errorf("watch debounce values cannot be negative")
	}
	return nil
}
