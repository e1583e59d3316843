package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config holds user-configurable defaults.
type Config struct {
	APIURL          string        `mapstructure:"api_url" json:"api_url" validate:"required,url"`
	StatusInterval  time.Duration `mapstructure:"status_interval" json:"status_interval" validate:"gte=1s"`
	HistoryInterval time.Duration `mapstructure:"history_interval" json:"history_interval" validate:"gte=1s"`
	CountdownSec    int           `mapstructure:"countdown_seconds" json:"countdown_seconds" validate:"gte=1"`
	HistoryLimit    int           `mapstructure:"history_limit" json:"history_limit" validate:"gte=1,lte=100"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" json:"request_timeout" validate:"gt=0"`
	LogFile         string        `mapstructure:"log_file" json:"log_file"`
	LogLevel        string        `mapstructure:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Backend         BackendConfig `mapstructure:"backend" json:"backend"`
}

// BackendConfig configures the reference backend.
type BackendConfig struct {
	Addr            string   `mapstructure:"addr" json:"addr" validate:"required,hostname_port"`
	DiskPath        string   `mapstructure:"disk_path" json:"disk_path"`
	ScanRoots       []string `mapstructure:"scan_roots" json:"scan_roots"`
	AutoRaise       bool     `mapstructure:"auto_raise" json:"auto_raise"`
	CPUThreshold    float64  `mapstructure:"cpu_threshold" json:"cpu_threshold" validate:"gt=0,lte=100"`
	MemoryThreshold float64  `mapstructure:"memory_threshold" json:"memory_threshold" validate:"gt=0,lte=100"`
	DiskThreshold   float64  `mapstructure:"disk_threshold" json:"disk_threshold" validate:"gt=0,lte=100"`
	RateLimit       float64  `mapstructure:"rate_limit" json:"rate_limit" validate:"gt=0"`
	Webhook         string   `mapstructure:"webhook" json:"webhook" validate:"omitempty,url"`
}

// Default returns a config with the dashboard's standard timings.
func Default() Config {
	return Config{
		APIURL:          "http://127.0.0.1:5001",
		StatusInterval:  5 * time.Second,
		HistoryInterval: 30 * time.Second,
		CountdownSec:    300,
		HistoryLimit:    10,
		RequestTimeout:  10 * time.Second,
		LogFile:         DefaultLogPath(),
		LogLevel:        "info",
		Backend: BackendConfig{
			Addr:            "127.0.0.1:5001",
			DiskPath:        "/",
			ScanRoots:       []string{"/home", "/var/log", "/var/cache", "/tmp"},
			AutoRaise:       true,
			CPUThreshold:    80,
			MemoryThreshold: 85,
			DiskThreshold:   90,
			RateLimit:       5,
		},
	}
}

// Path returns ~/.config/healtop/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "healtop", "config.json")
}

// DefaultLogPath returns ~/.local/state/healtop/healtop.log (or XDG_STATE_HOME).
func DefaultLogPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "healtop", "healtop.log")
}

// NewViper returns a viper instance seeded with defaults and HEALTOP_*
// environment overrides. Callers may bind flags before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("status_interval", d.StatusInterval)
	v.SetDefault("history_interval", d.HistoryInterval)
	v.SetDefault("countdown_seconds", d.CountdownSec)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("backend.addr", d.Backend.Addr)
	v.SetDefault("backend.disk_path", d.Backend.DiskPath)
	v.SetDefault("backend.scan_roots", d.Backend.ScanRoots)
	v.SetDefault("backend.auto_raise", d.Backend.AutoRaise)
	v.SetDefault("backend.cpu_threshold", d.Backend.CPUThreshold)
	v.SetDefault("backend.memory_threshold", d.Backend.MemoryThreshold)
	v.SetDefault("backend.disk_threshold", d.Backend.DiskThreshold)
	v.SetDefault("backend.rate_limit", d.Backend.RateLimit)
	v.SetDefault("backend.webhook", d.Backend.Webhook)

	v.SetEnvPrefix("HEALTOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path (Path() when empty) into v and returns
// the validated result. A missing file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = Path()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Mark(errors.Wrap(err, "validate config"), ErrInvalid)
	}
	return nil
}

// Save writes cfg to path (Path() when empty).
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return errors.New("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	v := viper.New()
	v.Set("api_url", cfg.APIURL)
	v.Set("status_interval", cfg.StatusInterval.String())
	v.Set("history_interval", cfg.HistoryInterval.String())
	v.Set("countdown_seconds", cfg.CountdownSec)
	v.Set("history_limit", cfg.HistoryLimit)
	v.Set("request_timeout", cfg.RequestTimeout.String())
	v.Set("log_file", cfg.LogFile)
	v.Set("log_level", cfg.LogLevel)
	v.Set("backend", map[string]interface{}{
		"addr":             cfg.Backend.Addr,
		"disk_path":        cfg.Backend.DiskPath,
		"scan_roots":       cfg.Backend.ScanRoots,
		"auto_raise":       cfg.Backend.AutoRaise,
		"cpu_threshold":    cfg.Backend.CPUThreshold,
		"memory_threshold": cfg.Backend.MemoryThreshold,
		"disk_threshold":   cfg.Backend.DiskThreshold,
		"rate_limit":       cfg.Backend.RateLimit,
		"webhook":          cfg.Backend.Webhook,
	})
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return os.Chmod(path, 0600)
}
