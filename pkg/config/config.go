// Package config loads the server settings: defaults, then an optional YAML
// file, then ZEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServerModeUDS = "uds"
	ServerModeTCP = "tcp"

	DBModeLocal  = "local"
	DBModeMemory = "memory"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Order  OrderConfig  `yaml:"order"`
}

type ServerConfig struct {
	Mode            string        `yaml:"mode"`
	Port            string        `yaml:"port"`
	SocketPath      string        `yaml:"socket_path"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"`
}

type DBConfig struct {
	Mode        string        `yaml:"mode"`
	Path        string        `yaml:"path"`
	Name        string        `yaml:"name"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type AuthConfig struct {
	// Local disables token checks and serves a single built-in studio.
	Local  bool   `yaml:"local"`
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type OrderConfig struct {
	ConflictRetries int `yaml:"conflict_retries"`
	QueueSize       int `yaml:"queue_size"`
	StreamBuffer    int `yaml:"stream_buffer"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Mode:            ServerModeTCP,
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		DB: DBConfig{
			Mode:        DBModeLocal,
			Path:        "./data",
			Name:        "zen",
			BusyTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{Local: true},
		Log:  LogConfig{Level: "info", Format: LogFormatText},
		Order: OrderConfig{
			ConflictRetries: 1,
			QueueSize:       256,
			StreamBuffer:    1024,
		},
	}
}

// Load reads path when it is non-empty and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("ZEN_SERVER_MODE", &c.Server.Mode)
	str("ZEN_PORT", &c.Server.Port)
	str("ZEN_SOCKET_PATH", &c.Server.SocketPath)
	str("ZEN_DB_MODE", &c.DB.Mode)
	str("ZEN_DB_PATH", &c.DB.Path)
	str("ZEN_DB_NAME", &c.DB.Name)
	str("ZEN_LOG_LEVEL", &c.Log.Level)
	str("ZEN_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("ZEN_AUTH_SECRET"); ok && v != "" {
		c.Auth.Secret = v
		c.Auth.Local = false
	}
	if v, ok := lookup("ZEN_AUTH_LOCAL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ZEN_AUTH_LOCAL: %w", err)
		}
		c.Auth.Local = b
	}
	if v, ok := lookup("ZEN_CONFLICT_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ZEN_CONFLICT_RETRIES: %w", err)
		}
		c.Order.ConflictRetries = n
	}
	return nil
}

var (
	ErrServerMode = errors.New("server mode must be uds or tcp")
	ErrDBMode     = errors.New("db mode must be local or memory")
	ErrNoSecret   = errors.New("auth secret is required unless auth is local")
)

func (c Config) Validate() error {
	var errs []error
	switch c.Server.Mode {
	case ServerModeUDS, ServerModeTCP:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrServerMode, c.Server.Mode))
	}
	if c.Server.Mode == ServerModeTCP {
		if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid port %q", c.Server.Port))
		}
	}
	switch c.DB.Mode {
	case DBModeLocal:
		if c.DB.Path == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("db path and name are required in local mode"))
		}
	case DBModeMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrDBMode, c.DB.Mode))
	}
	if !c.Auth.Local && c.Auth.Secret == "" {
		errs = append(errs, ErrNoSecret)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Order.ConflictRetries < 0 {
		errs = append(errs, errors.New("order.conflict_retries must not be negative"))
	}
	return errors.Join(errs...)
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger from the log section.
func (c Config) NewLogger() *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
