package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	mcp "github.com/ktr0731/mcp-server-weather"
	"github.com/ktr0731/mcp-server-weather/openmeteo"
)

var _ ServerToolHandler = (*toolHandler)(nil)

type toolHandler struct {
	adapter *Adapter
}

func (h *toolHandler) HandleToolGetCurrentWeather(ctx context.Context, req *ToolGetCurrentWeatherRequest) (*mcp.CallToolResult, error) {
	c, err := coordinatesFrom(req.Latitude, req.Longitude)
	if err != nil {
		return mcp.NewToolErrorResult(err), nil
	}
	res, err := h.adapter.GetCurrentWeather(ctx, c)
	if err != nil {
		return toolError(ctx, "get_current_weather", c, err)
	}
	return mcp.NewJSONToolResult(res)
}

func (h *toolHandler) HandleToolGetForecast(ctx context.Context, req *ToolGetForecastRequest) (*mcp.CallToolResult, error) {
	c, err := coordinatesFrom(req.Latitude, req.Longitude)
	if err != nil {
		return mcp.NewToolErrorResult(err), nil
	}
	res, err := h.adapter.GetForecast(ctx, c)
	if err != nil {
		return toolError(ctx, "get_forecast", c, err)
	}
	return mcp.NewJSONToolResult(res)
}

func coordinatesFrom(latitude, longitude *float64) (Coordinates, error) {
	if latitude == nil || longitude == nil {
		return Coordinates{}, fmt.Errorf("%w: latitude and longitude are required", ErrInvalidCoordinates)
	}
	return Coordinates{Latitude: *latitude, Longitude: *longitude}, nil
}

// toolError reports err to the model as a tool result. A canceled request has
// nobody waiting for the result, so its error is returned as is.
func toolError(ctx context.Context, tool string, c Coordinates, err error) (*mcp.CallToolResult, error) {
	if ctx.Err() != nil {
		return nil, err
	}
	attrs := []any{"tool", tool, "latitude", c.Latitude, "longitude", c.Longitude, "error", err}
	if status, ok := upstreamStatus(err); ok {
		attrs = append(attrs, "status", status)
	}
	mcp.Logger(ctx, "weather").Error("tool call failed", attrs...)
	return mcp.NewToolErrorResult(err), nil
}

func upstreamStatus(err error) (int, bool) {
	var upstreamErr *openmeteo.UpstreamError
	if !errors.As(err, &upstreamErr) || upstreamErr.StatusCode == 0 {
		return 0, false
	}
	return upstreamErr.StatusCode, true
}

var _ mcp.ServerResourceHandler = (*resourceHandler)(nil)

const (
	resourceScheme   = "weather"
	resourceCurrent  = "current"
	resourceForecast = "forecast"
	resourceMIMEType = "application/json"
)

// ErrUnknownResource is returned when a resource URI matches none of the templates.
var ErrUnknownResource = errors.New("unknown resource")

type resourceHandler struct {
	adapter *Adapter
}

// HandleResourcesList returns no concrete resources; every location is reached
// through the resource templates.
func (h *resourceHandler) HandleResourcesList(ctx context.Context) (*mcp.ListResourcesResult, error) {
	return &mcp.ListResourcesResult{Resources: []mcp.Resource{}}, nil
}

func (h *resourceHandler) HandleResourcesRead(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	kind, c, err := parseResourceURI(req.URI)
	if err != nil {
		return nil, err
	}

	var res any
	switch kind {
	case resourceCurrent:
		res, err = h.adapter.GetCurrentWeather(ctx, c)
	case resourceForecast:
		res, err = h.adapter.GetForecast(ctx, c)
	}
	if err != nil {
		return nil, err
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", req.URI, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContent{
			mcp.TextResourceContent{
				URI:      req.URI,
				MimeType: resourceMIMEType,
				Text:     string(b),
			},
		},
	}, nil
}

// parseResourceURI splits weather://{kind}/{latitude}/{longitude}.
func parseResourceURI(uri string) (string, Coordinates, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", Coordinates{}, fmt.Errorf("%w: %w", ErrUnknownResource, err)
	}
	if u.Scheme != resourceScheme {
		return "", Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}
	switch u.Host {
	case resourceCurrent, resourceForecast:
	default:
		return "", Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, parts[0])
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, parts[1])
	}
	return u.Host, Coordinates{Latitude: lat, Longitude: lon}, nil
}
