package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GO_PERSIST"

type ServerConfig struct {
	Port               int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutDownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

type DataConfig struct {
	FilePath        string        `mapstructure:"file_path" validate:"required"`
	Format          string        `mapstructure:"format"`
	PersistInterval time.Duration `mapstructure:"persist_interval" validate:"gt=0"`
	RestartDelay    time.Duration `mapstructure:"restart_delay" validate:"gte=0"`
	WatchEnabled    bool          `mapstructure:"watch_enabled"`
	SkipClean       bool          `mapstructure:"skip_clean"`
	CreateDirs      bool          `mapstructure:"create_dirs"`
	// Rules maps top-level document keys to validator tags, e.g. name: required.
	Rules map[string]string `mapstructure:"rules"`
}

type MiscConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error"`
	GinMode  string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Data   DataConfig   `mapstructure:"data"`
	Misc   MiscConfig   `mapstructure:"misc"`
}

func setDefaults(v *viper.Viper) {
	// Defaults to allow running without config file
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.request_timeout", "2s")
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("data.file_path", "./data/document.json")
	v.SetDefault("data.format", "")
	v.SetDefault("data.persist_interval", "5s")
	v.SetDefault("data.restart_delay", "5s")
	v.SetDefault("data.watch_enabled", true)
	v.SetDefault("data.skip_clean", true)
	v.SetDefault("data.create_dirs", true)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
}

// LoadConfig reads config.yaml from confPath (optional), a .env file in the
// working directory (optional) and GO_PERSIST_* environment variables, in
// increasing order of precedence. GO_PERSIST_DATA_FILE_PATH overrides
// data.file_path, and so on.
func LoadConfig(confPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(confPath)
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Info("No config file found, using defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvedFormat returns data.format, or the format implied by the data file
// extension, or json.
func (d DataConfig) ResolvedFormat() string {
	if d.Format != "" {
		return strings.ToLower(d.Format)
	}
	if format, err := codec.FormatFromPath(d.FilePath); err == nil {
		return format
	}
	return codec.FormatJSON
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := codec.ForFormat[any](c.Data.ResolvedFormat()); err != nil {
		return fmt.Errorf("invalid configuration: data.format: %w", err)
	}
	return nil
}
