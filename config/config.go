package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ktr0731/mcp-server-weather/openmeteo"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. MCP_WEATHER_LOG_LEVEL.
const EnvPrefix = "MCP_WEATHER"

// Config holds all configuration for the server
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Log      LogConfig      `mapstructure:"log"`
}

// UpstreamConfig holds Open-Meteo client configuration
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ForecastConfig holds forecast configuration
type ForecastConfig struct {
	Days int `mapstructure:"days"` // 1-16
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads configuration from an optional .env file, a config file and
// environment variables, in increasing order of precedence. If configFile is
// empty, config.yaml is searched in the usual places and may be absent.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.mcp-server-weather")
	}

	// Set defaults
	v.SetDefault("upstream.base_url", openmeteo.DefaultBaseURL)
	v.SetDefault("upstream.user_agent", openmeteo.DefaultUserAgent)
	v.SetDefault("upstream.timeout", openmeteo.DefaultTimeout)
	v.SetDefault("forecast.days", openmeteo.DefaultForecastDays)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if the searched config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url must not be empty")
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Forecast.Days < 1 || c.Forecast.Days > openmeteo.MaxForecastDays {
		return fmt.Errorf("forecast.days must be between 1 and %d, got %d", openmeteo.MaxForecastDays, c.Forecast.Days)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ClientOptions returns the Open-Meteo client options for this configuration.
func (c *Config) ClientOptions() *openmeteo.ClientOptions {
	return &openmeteo.ClientOptions{
		BaseURL:      c.Upstream.BaseURL,
		UserAgent:    c.Upstream.UserAgent,
		Timeout:      c.Upstream.Timeout,
		ForecastDays: c.Forecast.Days,
	}
}

// NewLogger creates a new slog.Logger based on the configuration.
// Records go to stderr since stdout carries the protocol.
func (c *Config) NewLogger() *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}
