package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	mcp "github.com/ktr0731/mcp-server-weather"
	"github.com/ktr0731/mcp-server-weather/openmeteo"
	"golang.org/x/exp/jsonrpc2"
)

// NewServer wires the adapter into an MCP handler. forecastDays is the horizon
// the trip_weather prompt assumes for get_forecast.
func NewServer(adapter *Adapter, forecastDays int) *mcp.Handler {
	if forecastDays <= 0 {
		forecastDays = openmeteo.DefaultForecastDays
	}
	return NewHandler(
		&promptHandler{now: time.Now, forecastDays: forecastDays},
		&resourceHandler{adapter: adapter},
		&toolHandler{adapter: adapter},
	)
}

// Options configures Start.
type Options struct {
	// Upstream defaults to an Open-Meteo client with default settings.
	Upstream     Upstream
	ForecastDays int
	// Transport overrides the process stdio.
	Transport *mcp.StdioTransportOptions
}

// Start serves the weather tools over stdio until the client closes stdin or ctx
// is done.
func Start(ctx context.Context, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	upstream := opts.Upstream
	if upstream == nil {
		upstream = openmeteo.NewClient(nil)
	}

	handler := NewServer(NewAdapter(upstream), opts.ForecastDays)

	ctx, listener, binder := mcp.NewStdioTransport(ctx, handler, opts.Transport)
	srv, err := jsonrpc2.Serve(ctx, listener, binder)
	if err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = listener.Close()
		err = ctx.Err()
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
