// Package config loads slidekit settings from defaults, an optional YAML file,
// a .env file and SLIDEKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	KeyEnvironment     = "environment"
	KeyLogLevel        = "log.level"
	KeyServerPort      = "server.port"
	KeyShutdownTimeout = "server.shutdown_timeout"
	KeyMaxUploadBytes  = "server.max_upload_bytes"
	KeyImagesBackend   = "images.backend"
	KeyImagesSQLite    = "images.sqlite_path"
	KeyImagesURLPrefix = "images.url_prefix"
	KeySlideWidthPx    = "render.slide_width_px"
	KeySlideHeightPx   = "render.slide_height_px"
	KeyOracleEnabled   = "oracle.enabled"
	KeyOracleURL       = "oracle.control_url"
	KeyConvertWorkers  = "convert.workers"

	envPrefix = "SLIDEKIT"
)

// Config is the resolved configuration.
type Config struct {
	Environment string
	LogLevel    string

	Server struct {
		Port            string
		ShutdownTimeout time.Duration
		MaxUploadBytes  int64
	}
	Images struct {
		Backend    string
		SQLitePath string
		URLPrefix  string
	}
	Render struct {
		SlideWidthPx  int
		SlideHeightPx int
	}
	Oracle struct {
		Enabled    bool
		ControlURL string
	}
	Workers int
}

type loadSettings struct {
	configFile string
	envFile    string
	overrides  map[string]any
}

// Option configures Load.
type Option func(*loadSettings)

// WithConfigFile reads a YAML config file. A missing file is an error.
func WithConfigFile(path string) Option {
	return func(s *loadSettings) { s.configFile = path }
}

// WithEnvFile changes the .env file loaded before the environment is read.
func WithEnvFile(path string) Option {
	return func(s *loadSettings) { s.envFile = path }
}

// WithOverrides injects values typically coming from CLI flags. They win over
// every other source.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		if s.overrides == nil {
			s.overrides = map[string]any{}
		}
		for k, v := range overrides {
			s.overrides[k] = v
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyEnvironment, "development")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyServerPort, "8080")
	v.SetDefault(KeyShutdownTimeout, 30*time.Second)
	v.SetDefault(KeyMaxUploadBytes, 100<<20)
	v.SetDefault(KeyImagesBackend, "memory")
	v.SetDefault(KeyImagesSQLite, "slidekit-images.db")
	v.SetDefault(KeyImagesURLPrefix, "/api/slides/images/")
	v.SetDefault(KeySlideWidthPx, 960)
	v.SetDefault(KeySlideHeightPx, 720)
	v.SetDefault(KeyOracleEnabled, false)
	v.SetDefault(KeyOracleURL, "")
	v.SetDefault(KeyConvertWorkers, 0)
}

// Load resolves configuration using the precedence:
// defaults < config file < environment (including .env) < overrides.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{envFile: ".env"}
	for _, opt := range opts {
		opt(&settings)
	}

	if err := godotenv.Load(settings.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", settings.envFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(settings.configFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		err = v.ReadConfig(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Environment: v.GetString(KeyEnvironment),
		LogLevel:    v.GetString(KeyLogLevel),
		Workers:     v.GetInt(KeyConvertWorkers),
	}
	cfg.Server.Port = v.GetString(KeyServerPort)
	cfg.Server.ShutdownTimeout = v.GetDuration(KeyShutdownTimeout)
	cfg.Server.MaxUploadBytes = v.GetInt64(KeyMaxUploadBytes)
	cfg.Images.Backend = strings.ToLower(strings.TrimSpace(v.GetString(KeyImagesBackend)))
	cfg.Images.SQLitePath = v.GetString(KeyImagesSQLite)
	cfg.Images.URLPrefix = v.GetString(KeyImagesURLPrefix)
	cfg.Render.SlideWidthPx = v.GetInt(KeySlideWidthPx)
	cfg.Render.SlideHeightPx = v.GetInt(KeySlideHeightPx)
	cfg.Oracle.Enabled = v.GetBool(KeyOracleEnabled)
	cfg.Oracle.ControlURL = v.GetString(KeyOracleURL)
	return cfg
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Images.Backend {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Images.SQLitePath) == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite backend", KeyImagesSQLite))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: unknown backend %q", KeyImagesBackend, c.Images.Backend))
	}
	if c.Render.SlideWidthPx <= 0 || c.Render.SlideHeightPx <= 0 {
		errs = append(errs, fmt.Errorf("slide dimensions must be positive, got %dx%d", c.Render.SlideWidthPx, c.Render.SlideHeightPx))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMaxUploadBytes))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyConvertWorkers))
	}
	if !strings.HasPrefix(c.Images.URLPrefix, "/") || !strings.HasSuffix(c.Images.URLPrefix, "/") {
		errs = append(errs, fmt.Errorf("%s must start and end with /", KeyImagesURLPrefix))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the environment asks for human-readable output.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
