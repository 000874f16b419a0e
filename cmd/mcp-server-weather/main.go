package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ktr0731/mcp-server-weather/config"
	"github.com/ktr0731/mcp-server-weather/openmeteo"
	"github.com/ktr0731/mcp-server-weather/weather"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: config.yaml in ., ./config or $HOME/.mcp-server-weather)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting weather server",
		"upstream", cfg.Upstream.BaseURL,
		"forecast_days", cfg.Forecast.Days,
		"timeout", cfg.Upstream.Timeout,
	)

	if err := weather.Start(ctx, &weather.Options{
		Upstream:     openmeteo.NewClient(cfg.ClientOptions()),
		ForecastDays: cfg.Forecast.Days,
	}); err != nil {
		log.Fatalf("failed to start weather server: %v", err)
	}

	logger.Info("weather server stopped")
}
