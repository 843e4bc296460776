package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Rooms    RoomsConfig    `mapstructure:"rooms"`
	Database DatabaseConfig `mapstructure:"database"`
	Network  NetworkConfig  `mapstructure:"network"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type BotConfig struct {
	Token  string `mapstructure:"token"`
	Prefix string `mapstructure:"prefix"`
	// CommandGuildID registers slash commands in one guild only, which
	// makes them show up immediately. Empty means global.
	CommandGuildID string `mapstructure:"command_guild_id"`
}

type RoomsConfig struct {
	APITimeout       time.Duration `mapstructure:"api_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	ReapGrace        time.Duration `mapstructure:"reap_grace"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"`
	SweepConcurrency int           `mapstructure:"sweep_concurrency"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type NetworkConfig struct {
	HTTPPoolSize int    `mapstructure:"http_pool_size"`
	APIBaseURL   string `mapstructure:"api_base_url"`
}

type LoggingConfig struct {
	Level     string        `mapstructure:"level"`
	File      string        `mapstructure:"file"`
	MaxSizeMB int64         `mapstructure:"max_size_mb"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

var GlobalConfig *Config

var envBindings = map[string][]string{
	"bot.token":            {"DISCORD_TOKEN", "TOKEN"},
	"bot.prefix":           {"BOT_PREFIX"},
	"bot.command_guild_id": {"COMMAND_GUILD_ID"},
	"rooms.api_timeout":    {"ROOMS_API_TIMEOUT"},
	"database.path":        {"DATABASE_PATH"},
	"logging.level":        {"LOG_LEVEL"},
	"metrics.addr":         {"METRICS_ADDR"},
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("bot.prefix", def.Bot.Prefix)
	v.SetDefault("bot.command_guild_id", "")
	v.SetDefault("rooms.api_timeout", def.Rooms.APITimeout)
	v.SetDefault("rooms.lock_timeout", def.Rooms.LockTimeout)
	v.SetDefault("rooms.reap_grace", def.Rooms.ReapGrace)
	v.SetDefault("rooms.sweep_schedule", def.Rooms.SweepSchedule)
	v.SetDefault("rooms.sweep_concurrency", def.Rooms.SweepConcurrency)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("network.http_pool_size", def.Network.HTTPPoolSize)
	v.SetDefault("network.api_base_url", def.Network.APIBaseURL)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.max_size_mb", def.Logging.MaxSizeMB)
	v.SetDefault("logging.max_age", def.Logging.MaxAge)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
}

// Load reads path (optional, any format viper understands) and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot token is not set (DISCORD_TOKEN or bot.token)")
	}
	if c.Bot.Prefix == "" {
		return errors.New("bot.prefix must not be empty")
	}
	if c.Rooms.APITimeout <= 0 || c.Rooms.LockTimeout <= 0 {
		return errors.New("rooms timeouts must be positive")
	}
	if c.Rooms.ReapGrace < 0 {
		return errors.New("rooms.reap_grace must not be negative")
	}
	if c.Rooms.SweepConcurrency <= 0 {
		return errors.New("rooms.sweep_concurrency must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Prefix: "!",
		},
		Rooms: RoomsConfig{
			APITimeout:       5 * time.Second,
			LockTimeout:      10 * time.Second,
			ReapGrace:        15 * time.Second,
			SweepSchedule:    "@every 2m",
			SweepConcurrency: 4,
		},
		Database: DatabaseConfig{
			Path: "voicemaster.db",
		},
		Network: NetworkConfig{
			HTTPPoolSize: 4,
			APIBaseURL:   "https://discord.com/api/v10",
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      "voicemaster.log",
			MaxSizeMB: 50,
			MaxAge:    7 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
	}
}
