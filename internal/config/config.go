package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultSQLitePath  = "hawaii.sqlite"
	DefaultCutoffDate  = "2016-08-23"
	DefaultTobsStation = "USC00519281"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver string
	DSN    string
	// Path is the SQLite file. Relative values are resolved against the
	// directory of the running executable.
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	// CutoffDate bounds the "last year" routes (precipitation, tobs).
	CutoffDate  string
	TobsStation string
	StrictDates bool

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTStatusTopic string

	OTelEndpoint string
}

// rawEnv mirrors the environment; strings are post-processed so that
// whitespace-only values fall back to defaults.
type rawEnv struct {
	AppEnv   string `env:"APP_ENV"`
	LogLevel string `env:"LOG_LEVEL"`
	HTTPAddr string `env:"HTTP_ADDR"`

	Driver          string        `env:"DB_DRIVER"`
	DSN             string        `env:"DB_DSN"`
	Path            string        `env:"SQLITE_PATH"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"4"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"4"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"0s"`
	LogSQL          bool          `env:"DB_LOG_SQL" envDefault:"false"`

	CutoffDate  string `env:"CLIMATE_CUTOFF_DATE"`
	TobsStation string `env:"CLIMATE_TOBS_STATION"`
	StrictDates bool   `env:"STRICT_DATES" envDefault:"false"`

	MQTTBroker      string `env:"MQTT_BROKER"`
	MQTTPort        int    `env:"MQTT_PORT" envDefault:"1883"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID"`
	MQTTStatusTopic string `env:"MQTT_STATUS_TOPIC"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	appEnv := orDefault(raw.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(orDefault(raw.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	driver := orDefault(raw.Driver, "sqlite3")
	switch driver {
	case "sqlite3", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, sqlite)", driver)
	}

	path, err := resolvePath(orDefault(raw.Path, DefaultSQLitePath))
	if err != nil {
		return Config{}, fmt.Errorf("SQLITE_PATH %q: %w", raw.Path, err)
	}

	if raw.MaxOpenConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 0, got %d", raw.MaxOpenConns)
	}
	if raw.ConnMaxLifetime < 0 {
		return Config{}, fmt.Errorf("DB_CONN_MAX_LIFETIME must be >= 0, got %v", raw.ConnMaxLifetime)
	}

	cutoff := orDefault(raw.CutoffDate, DefaultCutoffDate)
	if !isoDateRe.MatchString(cutoff) {
		return Config{}, fmt.Errorf("invalid CLIMATE_CUTOFF_DATE %q (expected YYYY-MM-DD)", cutoff)
	}

	if raw.MQTTPort <= 0 || raw.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d", raw.MQTTPort)
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        orDefault(raw.HTTPAddr, ":8080"),
		Driver:          driver,
		DSN:             strings.TrimSpace(raw.DSN),
		Path:            path,
		MaxOpenConns:    raw.MaxOpenConns,
		MaxIdleConns:    raw.MaxIdleConns,
		ConnMaxLifetime: raw.ConnMaxLifetime,
		LogSQL:          raw.LogSQL,
		CutoffDate:      cutoff,
		TobsStation:     orDefault(raw.TobsStation, DefaultTobsStation),
		StrictDates:     raw.StrictDates,
		MQTTBroker:      strings.TrimSpace(raw.MQTTBroker),
		MQTTPort:        raw.MQTTPort,
		MQTTClientID:    orDefault(raw.MQTTClientID, "surfsup-server"),
		MQTTStatusTopic: orDefault(raw.MQTTStatusTopic, "surfsup/status"),
		OTelEndpoint:    strings.TrimSpace(raw.OTelEndpoint),
	}, nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// resolvePath anchors relative paths at the executable's directory so the
// dataset is found regardless of the working directory.
func resolvePath(p string) (string, error) {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "file:") {
		return p, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), p), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
