// Package config loads the endpoint configuration from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
)

// Config holds every setting the endpoint needs at startup.
type Config struct {
	Host            string
	Port            int
	Path            string
	PayloadDir      string
	LogDir          string
	LogFile         string
	LogLevel        string
	Development     bool
	ReadLimit       int64
	WatchPayloads   bool
	ShutdownTimeout time.Duration
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() Config {
	return Config{
		Host:            "localhost",
		Port:            8765,
		Path:            "/",
		PayloadDir:      "track_commands",
		LogDir:          "logs",
		LogFile:         "server.log",
		LogLevel:        "info",
		WatchPayloads:   true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LogPath returns the log file location, or "" when file logging is disabled.
func (c Config) LogPath() string {
	if c.LogFile == "" {
		return ""
	}
	if filepath.IsAbs(c.LogFile) || c.LogDir == "" {
		return c.LogFile
	}
	return filepath.Join(c.LogDir, c.LogFile)
}

// Validate checks that the configuration can be used to start the server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with /", c.Path)
	}
	if strings.TrimSpace(c.PayloadDir) == "" {
		return errors.New("payload_dir must not be empty")
	}
	if c.ReadLimit < 0 {
		return fmt.Errorf("read_limit %d must not be negative", c.ReadLimit)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout %s must be positive", c.ShutdownTimeout)
	}
	return nil
}

type fileConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Path            string `toml:"path"`
	PayloadDir      string `toml:"payload_dir"`
	LogDir          string `toml:"log_dir"`
	LogFile         string `toml:"log_file"`
	LogLevel        string `toml:"log_level"`
	Development     bool   `toml:"development"`
	ReadLimit       int64  `toml:"read_limit"`
	WatchPayloads   bool   `toml:"watch_payloads"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// envConfig holds environment overrides. Unset variables leave zero values.
type envConfig struct {
	Host          string `env:"TRACKWS_HOST"`
	Port          int    `env:"TRACKWS_PORT"`
	Path          string `env:"TRACKWS_PATH"`
	PayloadDir    string `env:"TRACKWS_PAYLOAD_DIR"`
	LogFile       string `env:"TRACKWS_LOG_FILE"`
	LogLevel      string `env:"TRACKWS_LOG_LEVEL"`
	WatchPayloads string `env:"TRACKWS_WATCH_PAYLOADS"`
}

// Load builds a Config from defaults, the optional TOML file at path and the
// environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var err error
		cfg, err = loadFile(cfg, path)
		if err != nil {
			return Config{}, err
		}
	}

	cfg, err := applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg Config, path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("path") {
		cfg.Path = strings.TrimSpace(raw.Path)
	}
	if meta.IsDefined("payload_dir") {
		cfg.PayloadDir = strings.TrimSpace(raw.PayloadDir)
	}
	if meta.IsDefined("log_dir") {
		cfg.LogDir = strings.TrimSpace(raw.LogDir)
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("development") {
		cfg.Development = raw.Development
	}
	if meta.IsDefined("read_limit") {
		cfg.ReadLimit = raw.ReadLimit
	}
	if meta.IsDefined("watch_payloads") {
		cfg.WatchPayloads = raw.WatchPayloads
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}

func applyEnv(cfg Config) (Config, error) {
	var env envConfig
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if env.Host != "" {
		cfg.Host = env.Host
	}
	if env.Port != 0 {
		cfg.Port = env.Port
	}
	if env.Path != "" {
		cfg.Path = env.Path
	}
	if env.PayloadDir != "" {
		cfg.PayloadDir = env.PayloadDir
	}
	if env.LogFile != "" {
		cfg.LogFile = env.LogFile
	}
	if env.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(env.LogLevel)
	}
	if env.WatchPayloads != "" {
		watch, err := strconv.ParseBool(env.WatchPayloads)
		if err != nil {
			return Config{}, fmt.Errorf("parse TRACKWS_WATCH_PAYLOADS: %w", err)
		}
		cfg.WatchPayloads = watch
	}

	return cfg, nil
}
