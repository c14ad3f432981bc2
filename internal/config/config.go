// Package config loads planline settings from planline.yaml and PLANLINE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/task"
)

// FileName is the base name of the config file, without extension.
const FileName = "planline"

// Config holds all planline configuration.
type Config struct {
	Calendar   CalendarConfig   `yaml:"calendar" mapstructure:"calendar"`
	Scheduling SchedulingConfig `yaml:"scheduling" mapstructure:"scheduling"`
	Logger     LoggerConfig     `yaml:"logger" mapstructure:"logger"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// CalendarConfig describes the working calendar.
type CalendarConfig struct {
	// Weekend lists non-working weekdays by English name.
	Weekend []string `yaml:"weekend" mapstructure:"weekend"`
	// Holidays lists non-working dates as YYYY-MM-DD.
	Holidays []string `yaml:"holidays" mapstructure:"holidays"`
}

// SchedulingConfig holds defaults applied to new dependencies.
type SchedulingConfig struct {
	DefaultHardness string `yaml:"default_hardness" mapstructure:"default_hardness"`
}

type LoggerConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr" mapstructure:"addr"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min" mapstructure:"rate_limit_per_min"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Calendar: CalendarConfig{
			Weekend: []string{"saturday", "sunday"},
		},
		Scheduling: SchedulingConfig{
			DefaultHardness: task.Strong.String(),
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "console",
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:7467",
			RateLimitPerMin: 600,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".planline", "planline.db")
	}
	return filepath.Join(home, ".planline", "planline.db")
}

// Load reads configuration. When path is empty, planline.yaml is searched in
// the working directory and in $HOME/.planline; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".planline"))
		}
	}

	v.SetEnvPrefix("PLANLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// env values for list keys arrive as one comma-separated string
	cfg.Calendar.Weekend = splitList(cfg.Calendar.Weekend)
	cfg.Calendar.Holidays = splitList(cfg.Calendar.Holidays)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("calendar.weekend", d.Calendar.Weekend)
	v.SetDefault("calendar.holidays", []string{})
	v.SetDefault("scheduling.default_hardness", d.Scheduling.DefaultHardness)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.encoding", d.Logger.Encoding)
	v.SetDefault("logger.development", d.Logger.Development)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit_per_min", d.Server.RateLimitPerMin)
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that would otherwise fail later at use.
func (c *Config) Validate() error {
	if _, err := c.BuildCalendar(); err != nil {
		return err
	}
	if c.Scheduling.DefaultHardness != "" {
		if _, err := task.LookupHardness(c.Scheduling.DefaultHardness); err != nil {
			return fmt.Errorf("scheduling.default_hardness: %w", err)
		}
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("server.rate_limit_per_min: must not be negative")
	}
	return nil
}

// BuildCalendar constructs the working calendar described by the config.
func (c *Config) BuildCalendar() (*calendar.Weekly, error) {
	var weekend []time.Weekday
	for _, name := range c.Calendar.Weekend {
		d, ok := parseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("calendar.weekend: unknown weekday %q", name)
		}
		weekend = append(weekend, d)
	}
	var holidays []time.Time
	for _, s := range c.Calendar.Holidays {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("calendar.holidays: %w", err)
		}
		holidays = append(holidays, d)
	}
	cal, err := calendar.NewWeekly(weekend, holidays)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return cal, nil
}

// Hardness returns the configured default dependency hardness.
func (c *Config) Hardness() task.Hardness {
	return task.ParseHardness(c.Scheduling.DefaultHardness)
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, true
		}
	}
	return 0, false
}

// WriteDefault writes a starter config file to path. An existing file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
