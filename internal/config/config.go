// Package config loads lifetale's configuration from a JSON config file
// with environment variable overrides. The DeepSeek credential is an
// explicit value handed to the completion client at assembly; nothing
// deeper in the engine reads configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig
	DeepSeek DeepSeekConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int    `env:"LIFETALE_SERVER_PORT"`
	Token string `env:"LIFETALE_SERVER_TOKEN"`
}

type DeepSeekConfig struct {
	APIKey  string `env:"LIFETALE_DEEPSEEK_API_KEY"`
	BaseURL string `env:"LIFETALE_DEEPSEEK_BASE_URL"`
}

type StorageConfig struct {
	DataDir string `env:"LIFETALE_STORAGE_DATA_DIR"`
}

type LogConfig struct {
	Level string `env:"LIFETALE_LOG_LEVEL"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		DeepSeek: DeepSeekConfig{
			BaseURL: "https://api.deepseek.com/v1",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from $XDG_CONFIG_HOME/lifetale/config.json and
// applies LIFETALE_* environment overrides on top. A missing DeepSeek key
// is not an error here; the completion client reports it on first use.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment overrides: %w", err)
	}

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "lifetale-data"
		}
	}
	return filepath.Join(dir, "lifetale")
}
