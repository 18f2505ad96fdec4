package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the server process settings. The game itself has none.
type Config struct {
	Addr            string        `yaml:"addr" env:"TICTACTOE_ADDR" env-default:":8080" env-description:"HTTP listen address"`
	LogLevel        string        `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	LogFormat       string        `yaml:"log-format" env:"TICTACTOE_LOG_FORMAT" env-default:"text" env-description:"text or json"`
	Heartbeat       time.Duration `yaml:"heartbeat" env:"TICTACTOE_HEARTBEAT" env-default:"15s" env-description:"SSE heartbeat interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"TICTACTOE_SHUTDOWN_TIMEOUT" env-default:"5s" env-description:"graceful shutdown budget"`
	SessionTTL      time.Duration `yaml:"session-ttl" env:"TICTACTOE_SESSION_TTL" env-default:"24h" env-description:"idle time after which a session is evicted"`
	SweepInterval   time.Duration `yaml:"sweep-interval" env:"TICTACTOE_SWEEP_INTERVAL" env-default:"5m" env-description:"how often idle sessions are evicted"`
}

// Load reads the optional YAML file at path, then applies environment
// overrides. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("unable to read environment: %w", err)
	}
	if cfg.Heartbeat <= 0 {
		return nil, fmt.Errorf("heartbeat must be positive, got %s", cfg.Heartbeat)
	}
	if cfg.SessionTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("session-ttl and sweep-interval must be positive, got %s and %s", cfg.SessionTTL, cfg.SweepInterval)
	}
	return cfg, nil
}

// Usage describes the supported environment variables.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level

	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
