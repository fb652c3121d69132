// Package config loads service configuration from file and environment.
// Every knob has a default; a missing config file is not an error.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Listen   ListenConfig   `mapstructure:"listen"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Log      LogConfig      `mapstructure:"log"`
}

type ListenConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	// Secret is the shared HS256 verification secret for staff tokens.
	Secret string `mapstructure:"secret"`
}

type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type DispatchConfig struct {
	MailboxSize   int `mapstructure:"mailbox_size"`
	SendTimeoutMS int `mapstructure:"send_timeout_ms"`
	DedupSize     int `mapstructure:"dedup_size"`
	// CriticalDeadlineMin is the critical-event response window in minutes.
	CriticalDeadlineMin int `mapstructure:"critical_deadline_min"`
}

type MonitorConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

type AuditConfig struct {
	// AMQPURI left empty selects the in-process channel sink, used in
	// development and tests.
	AMQPURI  string `mapstructure:"amqp_uri"`
	Exchange string `mapstructure:"exchange"`
	Topic    string `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`

	level slog.LevelVar
}

// Leveler returns the handler level backing the logger. It is a LevelVar
// shared with the hot-reload watcher, so a changed log.level in the
// config file takes effect without a restart.
func (c *LogConfig) Leveler() *slog.LevelVar { return &c.level }

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *DispatchConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMS) * time.Millisecond
}

func (c *DispatchConfig) CriticalDeadline() time.Duration {
	return time.Duration(c.CriticalDeadlineMin) * time.Minute
}

func (c *MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.addr", ":8700")
	v.SetDefault("auth.secret", "")
	v.SetDefault("queue.capacity", 1000)
	v.SetDefault("dispatch.mailbox_size", 1024)
	v.SetDefault("dispatch.send_timeout_ms", 500)
	v.SetDefault("dispatch.dedup_size", 1024)
	v.SetDefault("dispatch.critical_deadline_min", 5)
	v.SetDefault("monitor.interval_seconds", 30)
	v.SetDefault("audit.amqp_uri", "")
	v.SetDefault("audit.exchange", "heal_audit.events")
	v.SetDefault("audit.topic", "heal_audit.event.processed.v1")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads configFile (optional) plus HEAL_* environment
// overrides and returns the merged configuration.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Log.level.Set(parseLevel(cfg.Log.Level))

	// Hot-reload: only the log level is re-read at runtime; structural
	// knobs (capacities, addresses) need a restart. The LevelVar makes
	// the update race-free against concurrent handler reads.
	if configFile != "" {
		v.OnConfigChange(func(_ fsnotify.Event) {
			var next Config
			if err := v.Unmarshal(&next); err == nil {
				cfg.Log.level.Set(parseLevel(next.Log.Level))
			}
		})
		v.WatchConfig()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("config: queue.capacity must be positive")
	}
	return nil
}
