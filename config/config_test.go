package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ktr0731/mcp-server-weather/openmeteo"
)

// isolate runs the test in an empty directory with an empty home so that no
// stray .env or config.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Upstream: UpstreamConfig{
			BaseURL:   openmeteo.DefaultBaseURL,
			UserAgent: openmeteo.DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Forecast: ForecastConfig{Days: 7},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_WEATHER_UPSTREAM_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("MCP_WEATHER_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("MCP_WEATHER_FORECAST_DAYS", "3")
	t.Setenv("MCP_WEATHER_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Upstream.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Upstream.Timeout)
	}
	if cfg.Forecast.Days != 3 {
		t.Errorf("Days = %d, want 3", cfg.Forecast.Days)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "weather.yaml")
	yaml := "upstream:\n  user_agent: my-agent/1.0\n  timeout: 10s\nforecast:\n  days: 16\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	// Environment takes precedence over the file.
	t.Setenv("MCP_WEATHER_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Upstream: UpstreamConfig{
			BaseURL:   openmeteo.DefaultBaseURL,
			UserAgent: "my-agent/1.0",
			Timeout:   10 * time.Second,
		},
		Forecast: ForecastConfig{Days: 16},
		Log:      LogConfig{Level: "warn", Format: "text"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing explicit config file succeeded, want error")
	}
}

func TestLoad_SearchedConfigFile(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("forecast:\n  days: 10\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Forecast.Days != 10 {
		t.Errorf("Days = %d, want 10", cfg.Forecast.Days)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)

	const key = "MCP_WEATHER_UPSTREAM_USER_AGENT"
	t.Cleanup(func() { os.Unsetenv(key) })
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-dotenv/0.1\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upstream.UserAgent != "from-dotenv/0.1" {
		t.Errorf("UserAgent = %q, want %q", cfg.Upstream.UserAgent, "from-dotenv/0.1")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero forecast days", key: "MCP_WEATHER_FORECAST_DAYS", value: "0"},
		{name: "too many forecast days", key: "MCP_WEATHER_FORECAST_DAYS", value: "17"},
		{name: "negative timeout", key: "MCP_WEATHER_UPSTREAM_TIMEOUT", value: "-1s"},
		{name: "relative base url", key: "MCP_WEATHER_UPSTREAM_BASE_URL", value: "api.open-meteo.com/v1"},
		{name: "unknown log level", key: "MCP_WEATHER_LOG_LEVEL", value: "verbose"},
		{name: "unknown log format", key: "MCP_WEATHER_LOG_FORMAT", value: "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%s succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_ClientOptions(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Upstream: UpstreamConfig{BaseURL: "http://example.com/v1", UserAgent: "ua", Timeout: time.Second},
		Forecast: ForecastConfig{Days: 2},
	}
	want := &openmeteo.ClientOptions{
		BaseURL:      "http://example.com/v1",
		UserAgent:    "ua",
		Timeout:      time.Second,
		ForecastDays: 2,
	}
	if diff := cmp.Diff(want, cfg.ClientOptions()); diff != "" {
		t.Errorf("ClientOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"debug": "DEBUG", "INFO": "INFO", "warning": "WARN", "error": "ERROR", "": "INFO"} {
		got, err := parseLevel(in)
		if err != nil {
			t.Errorf("parseLevel(%q) error = %v", in, err)
			continue
		}
		if got.String() != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
