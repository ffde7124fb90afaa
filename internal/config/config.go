package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meltforce/repsight/internal/analytics"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// TailscaleConfig controls the optional tsnet listener. When enabled, the
// server joins the tailnet under Hostname instead of binding a local port.
type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// AnalyticsConfig tunes the analytics engines. Zero values fall back to the
// engine defaults (week start Monday, 4 s/rep, 60 s rest, 7-session rolling
// window, 5-point trend minimum, 5-session plateau window).
type AnalyticsConfig struct {
	Formula           string  `yaml:"formula"`
	WeekStartDay      string  `yaml:"week_start_day"`
	SecondsPerRep     float64 `yaml:"seconds_per_rep"`
	RestSeconds       float64 `yaml:"rest_seconds"`
	RollingWindow     int     `yaml:"rolling_window"`
	MinTrendPoints    int     `yaml:"min_trend_points"`
	PlateauWindow     int     `yaml:"plateau_window"`
	PlateauCV         float64 `yaml:"plateau_cv"`
	PlateauSlopeRatio float64 `yaml:"plateau_slope_ratio"`
}

// Options converts the section into engine options. Unset fields keep the
// engine defaults.
func (a AnalyticsConfig) Options() (analytics.Options, error) {
	opts := analytics.Options{
		WeekStart:         time.Monday,
		SecondsPerRep:     a.SecondsPerRep,
		RestSeconds:       a.RestSeconds,
		RollingWindow:     a.RollingWindow,
		MinTrendPoints:    a.MinTrendPoints,
		PlateauWindow:     a.PlateauWindow,
		PlateauCV:         a.PlateauCV,
		PlateauSlopeRatio: a.PlateauSlopeRatio,
	}
	if a.Formula != "" {
		f, err := analytics.ParseFormula(a.Formula)
		if err != nil {
			return analytics.Options{}, err
		}
		opts.Formula = f
	}
	if a.WeekStartDay != "" {
		wd, err := analytics.ParseWeekday(a.WeekStartDay)
		if err != nil {
			return analytics.Options{}, err
		}
		opts.WeekStart = wd
	}
	return opts, nil
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REPSIGHT_ and underscore-separated paths:
//
//	REPSIGHT_SERVER_HOST, REPSIGHT_SERVER_PORT,
//	REPSIGHT_DB_HOST, REPSIGHT_DB_PORT, REPSIGHT_DB_NAME,
//	REPSIGHT_DB_USER, REPSIGHT_DB_PASSWORD, REPSIGHT_DB_SSLMODE,
//	REPSIGHT_AUTH_API_KEY, REPSIGHT_TS_HOSTNAME, REPSIGHT_TS_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPSIGHT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPSIGHT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPSIGHT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REPSIGHT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REPSIGHT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REPSIGHT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REPSIGHT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REPSIGHT_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REPSIGHT_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPSIGHT_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
		cfg.Tailscale.Enabled = true
	}
	if v := os.Getenv("REPSIGHT_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" && !c.Tailscale.Enabled {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if _, err := c.Analytics.Options(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	return nil
}
