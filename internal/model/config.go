package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. LAUNDRY_SERVER_BASE_URL.
const EnvPrefix = "LAUNDRY"

// ServerConfig describes the laundry web application the client talks to.
type ServerConfig struct {
	// BaseURL is the root URL of the web application.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PagePath is the page that hosts the notifications dropdown and the
	// forgery-protection form field.
	PagePath string `mapstructure:"page_path" yaml:"page_path"`

	// Username is used by the login command; the password lives in the keyring.
	Username string `mapstructure:"username" yaml:"username"`

	// PollIntervalSec is the fixed refresh period.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// TimeoutSec bounds every HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// PollInterval returns the refresh period as a duration.
func (c ServerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Timeout returns the request timeout as a duration.
func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SurfaceConfig names the page elements the notifications client binds to.
type SurfaceConfig struct {
	ListID         string `mapstructure:"list_id" yaml:"list_id"`
	BadgeID        string `mapstructure:"badge_id" yaml:"badge_id"`
	NavBadgeID     string `mapstructure:"nav_badge_id" yaml:"nav_badge_id"`
	MarkAllID      string `mapstructure:"mark_all_id" yaml:"mark_all_id"`
	DropdownID     string `mapstructure:"dropdown_id" yaml:"dropdown_id"`
	TokenField     string `mapstructure:"token_field" yaml:"token_field"`
	TokenHeader    string `mapstructure:"token_header" yaml:"token_header"`
	ToastContainer string `mapstructure:"toast_container" yaml:"toast_container"`
}

// DefaultSurfaceConfig returns the element names used by the laundry
// web application templates.
func DefaultSurfaceConfig() SurfaceConfig {
	return SurfaceConfig{
		ListID:         "notificationsList",
		BadgeID:        "notificationBadge",
		NavBadgeID:     "navNotificationBadge",
		MarkAllID:      "markAllRead",
		DropdownID:     "notificationsDropdown",
		TokenField:     "csrfmiddlewaretoken",
		TokenHeader:    "X-CSRFToken",
		ToastContainer: "toast-container",
	}
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	ToastSec int    `mapstructure:"toast_sec" yaml:"toast_sec"`
}

// ToastDuration returns how long a toast stays visible.
func (c DisplayConfig) ToastDuration() time.Duration {
	return time.Duration(c.ToastSec) * time.Second
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// DaemonConfig configures the bundled development server.
type DaemonConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr"`
	DBPath        string `mapstructure:"db_path" yaml:"db_path"`
	SeedSchedule  string `mapstructure:"seed_schedule" yaml:"seed_schedule"`
	OrderSchedule string `mapstructure:"order_schedule" yaml:"order_schedule"`
	FeedLimit     int    `mapstructure:"feed_limit" yaml:"feed_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Surface SurfaceConfig `mapstructure:"surface" yaml:"surface"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Daemon  DaemonConfig  `mapstructure:"daemon" yaml:"daemon"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/laundry-notify/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "laundry-notify", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:         "http://localhost:8000",
			PagePath:        "/notifications/",
			PollIntervalSec: 30,
			TimeoutSec:      15,
		},
		Surface: DefaultSurfaceConfig(),
		Display: DisplayConfig{
			Theme:    "default",
			ToastSec: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Daemon: DaemonConfig{
			Addr:          ":8000",
			DBPath:        "laundry.db",
			SeedSchedule:  "",
			OrderSchedule: "@every 1m",
			FeedLimit:     10,
		},
	}
}

// setDefaults mirrors defaultAppConfig into v so that env overrides and
// partially filled files resolve every key.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.page_path", d.Server.PagePath)
	v.SetDefault("server.username", d.Server.Username)
	v.SetDefault("server.poll_interval_sec", d.Server.PollIntervalSec)
	v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)

	v.SetDefault("surface.list_id", d.Surface.ListID)
	v.SetDefault("surface.badge_id", d.Surface.BadgeID)
	v.SetDefault("surface.nav_badge_id", d.Surface.NavBadgeID)
	v.SetDefault("surface.mark_all_id", d.Surface.MarkAllID)
	v.SetDefault("surface.dropdown_id", d.Surface.DropdownID)
	v.SetDefault("surface.token_field", d.Surface.TokenField)
	v.SetDefault("surface.token_header", d.Surface.TokenHeader)
	v.SetDefault("surface.toast_container", d.Surface.ToastContainer)

	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.toast_sec", d.Display.ToastSec)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("daemon.addr", d.Daemon.Addr)
	v.SetDefault("daemon.db_path", d.Daemon.DBPath)
	v.SetDefault("daemon.seed_schedule", d.Daemon.SeedSchedule)
	v.SetDefault("daemon.order_schedule", d.Daemon.OrderSchedule)
	v.SetDefault("daemon.feed_limit", d.Daemon.FeedLimit)
}

// NewViper returns a Viper instance with defaults and LAUNDRY_* environment
// overrides configured. A .env file in the working directory is loaded
// first if present.
func NewViper() *viper.Viper {
	// Missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults and environment overrides apply.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigWith(NewViper(), path)
}

// LoadConfigWith is LoadConfig on a caller-prepared Viper instance, which
// lets commands bind their flags before the file is read.
func LoadConfigWith(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.PollIntervalSec <= 0 {
		cfg.Server.PollIntervalSec = 30
	}
	if cfg.Server.TimeoutSec <= 0 {
		cfg.Server.TimeoutSec = 15
	}
	if cfg.Display.ToastSec <= 0 {
		cfg.Display.ToastSec = 4
	}
	if cfg.Daemon.FeedLimit <= 0 {
		cfg.Daemon.FeedLimit = 10
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("surface", cfg.Surface)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("daemon", cfg.Daemon)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
