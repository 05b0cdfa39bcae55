package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config is the CLI configuration. The calc package itself takes no
// configuration; these values only pick defaults for its arguments.
type Config struct {
	Compute ComputeConfig `mapstructure:"compute"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ComputeConfig struct {
	UseGPU bool `mapstructure:"use_gpu"`
}

type StorageConfig struct {
	Compression string `mapstructure:"compression"`
	ChunkSize   int    `mapstructure:"chunk_size"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Compute: ComputeConfig{UseGPU: false},
		Storage: StorageConfig{
			Compression: "zstd",
			ChunkSize:   1 << 20,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			File:    "",
			Console: true,
		},
	}
}

// Load reads configuration from file, environment (OPTIMED_*) and defaults.
// OPTIMED_GPU=1 is accepted as a shorthand for OPTIMED_COMPUTE_USE_GPU.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".optimed"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OPTIMED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("compute.use_gpu", "OPTIMED_COMPUTE_USE_GPU", "OPTIMED_GPU"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Logging.File = expandPath(cfg.Logging.File)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validComp := []string{"none", "zstd", "lz4"}
	if !slices.Contains(validComp, c.Storage.Compression) {
		return fmt.Errorf("storage.compression must be one of: %v", validComp)
	}
	if c.Storage.ChunkSize < 1024 {
		return errors.New("storage.chunk_size must be at least 1024")
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("compute.use_gpu", cfg.Compute.UseGPU)

	v.SetDefault("storage.compression", cfg.Storage.Compression)
	v.SetDefault("storage.chunk_size", cfg.Storage.ChunkSize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
