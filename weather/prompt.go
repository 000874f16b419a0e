package weather

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	mcp "github.com/ktr0731/mcp-server-weather"
)

var _ ServerPromptHandler = (*promptHandler)(nil)

type promptHandler struct {
	now          func() time.Time
	forecastDays int
}

// HandlePromptTripWeather asks the model to prepare a traveler for the weather at
// the destination. Dates inside the forecast horizon are answered from the
// forecast, later ones from current conditions.
func (h *promptHandler) HandlePromptTripWeather(ctx context.Context, req *PromptTripWeatherRequest) (*mcp.GetPromptResult, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(req.Latitude), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, req.Latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(req.Longitude), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, req.Longitude)
	}
	c := Coordinates{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", req.Date, err)
	}

	today := h.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	daysAhead := int(date.Sub(today).Hours() / 24)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a weather analyst helping a traveler prepare for a trip to latitude %v, longitude %v starting on %s.\n", lat, lon, date.Format(time.DateOnly))
	fmt.Fprintf(&b, "The current date is %s.\n\n", today.Format(time.DateOnly))
	if daysAhead >= 0 && daysAhead < h.forecastDays {
		fmt.Fprintf(&b, "The trip starts within the %d-day forecast horizon. Call get_forecast with these coordinates and use the entry for %s.\n", h.forecastDays, date.Format(time.DateOnly))
		b.WriteString("Report the temperature range, the precipitation amount and chance, and the weather code of that day.\n")
	} else {
		fmt.Fprintf(&b, "The trip starts outside the %d-day forecast horizon, so no forecast is available yet. Call get_current_weather with these coordinates and treat it as a general indicator.\n", h.forecastDays)
		b.WriteString("Use the current temperature as both ends of the temperature range and base the precipitation chance on current precipitation.\n")
	}
	b.WriteString("\nFinish with a short summary, clothing recommendations and any weather warnings. Use only the weather tools as sources.")

	return &mcp.GetPromptResult{
		Description: "Weather briefing for a trip",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Text: b.String()},
			},
		},
	}, nil
}
