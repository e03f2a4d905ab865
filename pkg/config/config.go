// Package config loads the settings of the blockmode command line tool from
// a yaml file and BLOCKMODE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Engine is "software" or "hardware" (the simulated peripheral).
	Engine          string `mapstructure:"engine"`
	Handles         int    `mapstructure:"handles"`
	KeyStreamBlocks int    `mapstructure:"keystream_blocks"`
	// Latency is the simulated peripheral busy time in status polls.
	Latency   int    `mapstructure:"latency"`
	LogLevel  string `mapstructure:"log_level"`
	LogDB     string `mapstructure:"log_db"`
	ChunkSize int    `mapstructure:"chunk_size"`
	// Compression is "none", "zstd" or "gzip"; applied before encryption.
	Compression string `mapstructure:"compression"`
	ConfigFile  string `mapstructure:"config_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine:          "software",
		Handles:         8,
		KeyStreamBlocks: 4,
		Latency:         2,
		LogLevel:        "info",
		ChunkSize:       4096,
		Compression:     "none",
		ConfigFile:      "blockmode",
	}
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("engine", cfg.Engine)
	v.SetDefault("handles", cfg.Handles)
	v.SetDefault("keystream_blocks", cfg.KeyStreamBlocks)
	v.SetDefault("latency", cfg.Latency)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_db", cfg.LogDB)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("compression", cfg.Compression)
	v.SetDefault("config_file", cfg.ConfigFile)
	v.SetEnvPrefix("BLOCKMODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads path if given, otherwise blockmode.yaml from the working
// directory, /etc/blockmode-go or ~/.blockmode-go. A missing default file is
// not an error. Environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(cfg.ConfigFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/blockmode-go/")
		v.AddConfigPath("$HOME/.blockmode-go")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		cfg.ConfigFile = used
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Engine {
	case "software", "hardware":
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	switch c.Compression {
	case "none", "", "zstd", "gzip":
	default:
		return fmt.Errorf("config: unknown compression %q", c.Compression)
	}
	if c.Handles <= 0 {
		return fmt.Errorf("config: handles must be positive, got %d", c.Handles)
	}
	if c.KeyStreamBlocks <= 0 {
		return fmt.Errorf("config: keystream_blocks must be positive, got %d", c.KeyStreamBlocks)
	}
	if c.Latency < 0 {
		return fmt.Errorf("config: latency must not be negative, got %d", c.Latency)
	}
	if c.ChunkSize < 16 {
		return fmt.Errorf("config: chunk_size must be at least one block, got %d", c.ChunkSize)
	}
	return nil
}

// Hardware reports whether the simulated hardware engine is selected.
func (c *Config) Hardware() bool { return c.Engine == "hardware" }
