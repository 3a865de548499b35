// Package config loads explorer settings: defaults, then a YAML file, then
// MYRIAD_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/store/influx"
)

// Config is the top-level explorer configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and locates the backend.
type StoreConfig struct {
	Backend string       `yaml:"backend" env:"MYRIAD_STORE_BACKEND" validate:"oneof=memory influx"`
	Fixture string       `yaml:"fixture" env:"MYRIAD_STORE_FIXTURE" validate:"required_if=Backend memory"`
	Influx  InfluxConfig `yaml:"influx"`
}

// InfluxConfig locates the InfluxDB bucket. Only checked when selected.
type InfluxConfig struct {
	URL         string `yaml:"url" env:"MYRIAD_INFLUX_URL" validate:"omitempty,url"`
	Token       string `yaml:"token" env:"MYRIAD_INFLUX_TOKEN"`
	Org         string `yaml:"org" env:"MYRIAD_INFLUX_ORG"`
	Bucket      string `yaml:"bucket" env:"MYRIAD_INFLUX_BUCKET"`
	Measurement string `yaml:"measurement" env:"MYRIAD_INFLUX_MEASUREMENT"`
	AuthorTag   string `yaml:"author_tag" env:"MYRIAD_INFLUX_AUTHOR_TAG"`
	Start       string `yaml:"start" env:"MYRIAD_INFLUX_START"`
}

// EngineConfig tunes the session.
type EngineConfig struct {
	ValuePlacement string        `yaml:"value_placement" env:"MYRIAD_VALUE_PLACEMENT" validate:"oneof=fixed append after-dimensions"`
	MultiValued    []string      `yaml:"multi_valued" env:"MYRIAD_MULTI_VALUED" envSeparator:","`
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"MYRIAD_QUERY_TIMEOUT" validate:"gte=0"`
	EventLimit     int           `yaml:"event_limit" env:"MYRIAD_EVENT_LIMIT" validate:"gte=0"`
}

// ServerConfig is the HTTP shell listener.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"MYRIAD_SERVER_ADDR" validate:"required"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"MYRIAD_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"MYRIAD_LOG_FORMAT" validate:"oneof=text json"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: "memory",
			Fixture: "fixture.csv",
			Influx: InfluxConfig{
				URL:         "http://localhost:8086",
				Org:         "myriad",
				Bucket:      "explorer",
				Measurement: "clusters",
				AuthorTag:   "user",
				Start:       "0",
			},
		},
		Engine: EngineConfig{
			ValuePlacement: "fixed",
			MultiValued:    []string{"Property"},
			QueryTimeout:   30 * time.Second,
			EventLimit:     1024,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load merges defaults, the YAML file at path (optional, may be empty or
// missing) and the environment, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and the selected backend's settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Backend == "influx" {
		in := c.Store.Influx
		var missing []string
		for _, f := range []struct{ name, value string }{
			{"url", in.URL}, {"org", in.Org}, {"bucket", in.Bucket},
		} {
			if f.value == "" {
				missing = append(missing, f.name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("influx backend requires %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// EngineOptions converts the engine section into session options.
func (c Config) EngineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithValuePlacement(engine.ParseValuePlacement(c.Engine.ValuePlacement)),
		engine.WithMultiValued(c.Engine.MultiValued...),
		engine.WithQueryTimeout(c.Engine.QueryTimeout),
		engine.WithEventLimit(c.Engine.EventLimit),
		engine.WithLogger(logger),
	}
}

// InfluxStore converts the influx section for store/influx.
func (c Config) InfluxStore() influx.Config {
	in := c.Store.Influx
	return influx.Config{
		URL:         in.URL,
		Token:       in.Token,
		Org:         in.Org,
		Bucket:      in.Bucket,
		Measurement: in.Measurement,
		AuthorTag:   in.AuthorTag,
		Start:       in.Start,
	}
}

// NewLogger builds the slog logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level. Unknown → info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
