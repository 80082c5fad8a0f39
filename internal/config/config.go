package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"worktrack/internal/categorizer"
	"worktrack/internal/ipc"
)

type BreakConfig struct {
	DefaultMinutes int `mapstructure:"default_minutes"`
}

type Config struct {
	DatabasePath               string             `mapstructure:"database_path"`
	SocketPath                 string             `mapstructure:"socket_path"`
	Collector                  string             `mapstructure:"collector"` // "x11" or "none"
	SampleIntervalSeconds      int                `mapstructure:"sample_interval_seconds"`
	TickIntervalSeconds        int                `mapstructure:"tick_interval_seconds"`
	IdleCheckIntervalSeconds   int                `mapstructure:"idle_check_interval_seconds"`
	InactivityThresholdSeconds int                `mapstructure:"inactivity_threshold_seconds"`
	ResumeKey                  string             `mapstructure:"resume_key"`
	PayPartialOfficeBreak      bool               `mapstructure:"pay_partial_office_break"`
	ArchiveEnabled             bool               `mapstructure:"archive_enabled"`
	Breaks                     BreakConfig        `mapstructure:"breaks"`
	Categories                 []categorizer.Rule `mapstructure:"categories"`
	Domains                    []categorizer.Rule `mapstructure:"domains"`

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", "worktrack.db")
	v.SetDefault("socket_path", ipc.DefaultSocketPath)
	v.SetDefault("collector", "x11")
	v.SetDefault("sample_interval_seconds", 1)
	v.SetDefault("tick_interval_seconds", 1)
	v.SetDefault("idle_check_interval_seconds", 1)
	v.SetDefault("inactivity_threshold_seconds", 50)
	v.SetDefault("resume_key", " ")
	v.SetDefault("pay_partial_office_break", true)
	v.SetDefault("archive_enabled", true)
	v.SetDefault("breaks.default_minutes", 15)
}

// LoadConfig reads the config file, the WORKTRACK_* environment and the
// defaults, in viper's usual precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/worktrack")
		v.AddConfigPath("/etc/worktrack/")
	}

	v.SetEnvPrefix("WORKTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	log.Printf("Configuration loaded: %+v", *cfg)
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.sanitize()
	cfg.v = v
	return &cfg, nil
}

func (c *Config) sanitize() {
	for _, f := range []struct {
		name string
		val  *int
	}{
		{"sample_interval_seconds", &c.SampleIntervalSeconds},
		{"tick_interval_seconds", &c.TickIntervalSeconds},
		{"idle_check_interval_seconds", &c.IdleCheckIntervalSeconds},
		{"inactivity_threshold_seconds", &c.InactivityThresholdSeconds},
	} {
		if *f.val < 1 {
			log.Printf("Warning: %s too low, setting to 1", f.name)
			*f.val = 1
		}
	}
	if c.Collector != "x11" && c.Collector != "none" {
		log.Printf("Warning: invalid collector '%s', defaulting to 'x11'", c.Collector)
		c.Collector = "x11"
	}
	if c.Breaks.DefaultMinutes < 1 {
		log.Println("Warning: breaks.default_minutes too low, setting to 15")
		c.Breaks.DefaultMinutes = 15
	}
	if c.ResumeKey == "" {
		c.ResumeKey = " "
	}
	if c.SocketPath == "" {
		c.SocketPath = ipc.DefaultSocketPath
	}
}

// Watch re-reads the file on every change and hands the new config to
// onChange. Without a config file there is nothing to watch.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		log.Println("No config file in use, hot reload disabled.")
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s (%s)", e.Name, e.Op)
		next, err := decode(c.v)
		if err != nil {
			log.Printf("Warning: ignoring config change: %v", err)
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}
func (c *Config) IdleCheckInterval() time.Duration {
	return time.Duration(c.IdleCheckIntervalSeconds) * time.Second
}
func (c *Config) InactivityThreshold() time.Duration {
	return time.Duration(c.InactivityThresholdSeconds) * time.Second
}
func (c *Config) DefaultBreak() time.Duration {
	return time.Duration(c.Breaks.DefaultMinutes) * time.Minute
}
