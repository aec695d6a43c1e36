// Package config resolves scanner settings.
//
// Each setting is taken from the first source that provides it:
//
//	command-line flag > environment variable > YAML file (-config) > default
//
// Environment variables may also come from a .env file in the working
// directory, loaded by main before ParseFlags runs.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL      string        `yaml:"server_url"`
	Timeout        time.Duration `yaml:"timeout"`
	FramesDir      string        `yaml:"frames_dir"`
	FPS            int           `yaml:"fps"`
	RescanInterval time.Duration `yaml:"rescan_interval"`
	LogLevel       string        `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		ServerURL:      "http://127.0.0.1:8000",
		Timeout:        10 * time.Second,
		FPS:            10,
		RescanInterval: 2 * time.Second,
		LogLevel:       "info",
	}
}

// ParseFlags builds a Config from args and the process environment.
func ParseFlags(args []string) (Config, error) {
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	var (
		flags      Config
		configPath string
		rescan     string
	)
	fs := flag.NewFlagSet("scanner", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.StringVar(&flags.ServerURL, "server", "", "Score service base URL")
	fs.DurationVar(&flags.Timeout, "timeout", 0, "Per-request timeout")
	fs.StringVar(&flags.FramesDir, "frames", "", "Directory of PNG/JPEG frames to scan")
	fs.IntVar(&flags.FPS, "fps", 0, "Decode attempts per second")
	fs.StringVar(&rescan, "rescan", "", "Ignore a repeated payload for this long (0 disables)")
	fs.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if configPath == "" {
		configPath = getenv("SCANNER_CONFIG")
	}
	cfg := Defaults()
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if flags.ServerURL != "" {
		cfg.ServerURL = flags.ServerURL
	}
	if flags.Timeout != 0 {
		cfg.Timeout = flags.Timeout
	}
	if flags.FramesDir != "" {
		cfg.FramesDir = flags.FramesDir
	}
	if flags.FPS != 0 {
		cfg.FPS = flags.FPS
	}
	if rescan != "" {
		d, err := time.ParseDuration(rescan)
		if err != nil {
			return Config{}, fmt.Errorf("invalid -rescan: %w", err)
		}
		cfg.RescanInterval = d
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("SCANNER_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := getenv("SCANNER_FRAMES_DIR"); v != "" {
		cfg.FramesDir = v
	}
	if v := getenv("SCANNER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("SCANNER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid SCANNER_TIMEOUT env variable")
		}
		cfg.Timeout = d
	}
	if v := getenv("SCANNER_RESCAN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid SCANNER_RESCAN_INTERVAL env variable")
		}
		cfg.RescanInterval = d
	}
	if v := getenv("SCANNER_FPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid SCANNER_FPS env variable")
		}
		cfg.FPS = n
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL must be an absolute http(s) URL, got %q", c.ServerURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("fps must be between 1 and 120, got %d", c.FPS)
	}
	if c.RescanInterval < 0 {
		return errors.New("rescan interval must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto slog.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}
