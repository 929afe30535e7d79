package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the procmon configuration.
type Config struct {
	RefreshIntervalMs int             `mapstructure:"refresh_interval_ms"`
	Collector         CollectorConfig `mapstructure:"collector"`
	MetricsAddr       string          `mapstructure:"metrics_addr"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// CollectorConfig tunes snapshot collection.
type CollectorConfig struct {
	Workers   int `mapstructure:"workers"`
	TimeoutMs int `mapstructure:"timeout_ms"`
}

func Default() *Config {
	return &Config{
		RefreshIntervalMs: 1000,
		Collector: CollectorConfig{
			Workers:   8,
			TimeoutMs: 5000,
		},
		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  20,
		LogMaxBackups: 3,
	}
}

// RefreshInterval returns the poll interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// CollectorTimeout returns the per-collection deadline as a duration.
func (c *Config) CollectorTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutMs) * time.Millisecond
}

// Load reads configuration from cfgFile (or procmon.yaml in the working
// directory or the OS config directory), a .env file in the working
// directory, and PROCMON_* environment variables, in increasing order of
// precedence. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return load(cfgFile, ".env")
}

func load(cfgFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := Default()
	v := viper.New()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("procmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix("PROCMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the key is absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("refresh_interval_ms", cfg.RefreshIntervalMs)
	v.SetDefault("collector.workers", cfg.Collector.Workers)
	v.SetDefault("collector.timeout_ms", cfg.Collector.TimeoutMs)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "procmon")
	case "darwin":
		return "/Library/Application Support/procmon"
	default:
		return "/etc/procmon"
	}
}
