package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PIXELPERFECT"

type Config struct {
	Server    Server    `mapstructure:"server"`
	Replicate Replicate `mapstructure:"replicate"`
	Remote    Remote    `mapstructure:"remote"`
	Converter Converter `mapstructure:"converter"`
	Session   Session   `mapstructure:"session"`
	Store     Store     `mapstructure:"store"`
	Telegram  Telegram  `mapstructure:"telegram"`
	Handler   Handler   `mapstructure:"handler"`
	Log       Log       `mapstructure:"log"`
}

type Server struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Replicate struct {
	APIToken          string `mapstructure:"api_token"`
	Endpoint          string `mapstructure:"endpoint"`
	ModelVersion      string `mapstructure:"model_version"`
	WaitSeconds       int    `mapstructure:"wait_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

type Remote struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxResultBytes int64         `mapstructure:"max_result_bytes"`
}

type Converter struct {
	Filter          string        `mapstructure:"filter"`
	MinLatency      time.Duration `mapstructure:"min_latency"`
	MaxOutputPixels int64         `mapstructure:"max_output_pixels"`
}

type Session struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Store struct {
	Dir string        `mapstructure:"dir"`
	TTL time.Duration `mapstructure:"ttl"`
}

type Telegram struct {
	BotToken       string  `mapstructure:"bot_token"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids"`
}

type Handler struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	v.SetDefault("replicate.api_token", "")
	v.SetDefault("replicate.endpoint", "https://api.replicate.com/v1/predictions")
	v.SetDefault("replicate.model_version", "42fed1c4974146d4d2414e2be2c5277c7fcf05fcc3a73ab2a43dc3125f1ddbf0")
	v.SetDefault("replicate.wait_seconds", 30)
	v.SetDefault("replicate.requests_per_minute", 0)

	v.SetDefault("remote.timeout", "45s")
	v.SetDefault("remote.max_result_bytes", 64<<20)

	v.SetDefault("converter.filter", "catmullrom")
	v.SetDefault("converter.min_latency", "3s")
	v.SetDefault("converter.max_output_pixels", 64_000_000)

	v.SetDefault("session.ttl", "1h")
	v.SetDefault("session.sweep_interval", "1m")

	v.SetDefault("store.dir", "")
	v.SetDefault("store.ttl", "1h")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.allowed_chat_ids", []int64{})

	v.SetDefault("handler.timeout", "2m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 2)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads the TOML config file at path (or config.toml in the working directory when path is empty),
// applies environment overrides and returns the typed configuration. A missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("replicate.api_token", EnvPrefix+"_REPLICATE_API_TOKEN", "REPLICATE_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding replicate token env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Remote.Timeout < 0:
		return errors.New("remote.timeout must not be negative")
	case c.Replicate.WaitSeconds < 0:
		return errors.New("replicate.wait_seconds must not be negative")
	case c.Remote.Timeout > 0 && time.Duration(c.Replicate.WaitSeconds)*time.Second >= c.Remote.Timeout:
		return fmt.Errorf("replicate.wait_seconds (%ds) must be shorter than remote.timeout (%s)",
			c.Replicate.WaitSeconds, c.Remote.Timeout)
	case c.Remote.MaxResultBytes <= 0:
		return errors.New("remote.max_result_bytes must be positive")
	case c.Converter.MaxOutputPixels <= 0:
		return errors.New("converter.max_output_pixels must be positive")
	case c.Converter.MinLatency < 0:
		return errors.New("converter.min_latency must not be negative")
	case c.Session.TTL <= 0 || c.Session.SweepInterval <= 0:
		return errors.New("session.ttl and session.sweep_interval must be positive")
	case c.Store.TTL <= 0:
		return errors.New("store.ttl must be positive")
	}

	return nil
}

// HasCredential reports whether a remote API token was configured.
func (r Replicate) HasCredential() bool {
	return strings.TrimSpace(r.APIToken) != ""
}
