package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		AdminChatID int64  `yaml:"admin_chat_id"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Reminders struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"reminders"`

	Session struct {
		TTLMinutes int `yaml:"ttl_minutes"`
	} `yaml:"session"`

	RateLimit struct {
		PerUserPerMinute int `yaml:"per_user_per_minute"`
	} `yaml:"rate_limit"`

	GoogleCalendar struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsPath string `yaml:"credentials_path"`
		CalendarID      string `yaml:"calendar_id"`
		Location        string `yaml:"location"` // address shown in calendar links
	} `yaml:"google_calendar"`

	AdminAPI struct {
		Enabled    bool   `yaml:"enabled"`
		ListenAddr string `yaml:"listen_addr"`
		Token      string `yaml:"token"`
	} `yaml:"admin_api"`
}

// Load reads the yaml config at path. A .env file next to the process,
// when present, is loaded first so ${VAR} placeholders in the yaml can
// reference it.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram.bot_token is required")
	}
	if cfg.Telegram.AdminChatID == 0 {
		return nil, fmt.Errorf("telegram.admin_chat_id is required")
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/zapisnik.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	if cfg.Backup.Enabled && cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}

	return &cfg, nil
}

// ReminderInterval returns the sweep interval, defaulting to 30 minutes.
func (c *Config) ReminderInterval() time.Duration {
	if c.Reminders.IntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Reminders.IntervalMinutes) * time.Minute
}

// SessionTTL returns how long an idle booking session survives.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}
