// Package weather exposes Open-Meteo current conditions and daily forecasts as
// MCP tools.
package weather

//go:generate go run ./cmd/mcpgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/ktr0731/mcp-server-weather/openmeteo"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidLatitude    = fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidCoordinates)
	ErrInvalidLongitude   = fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidCoordinates)
)

// Coordinates is a point on the globe in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports whether c lies within the valid latitude and longitude ranges.
func (c Coordinates) Validate() error {
	// Negated comparisons so that NaN is rejected as well.
	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		return fmt.Errorf("%w, got %v", ErrInvalidLatitude, c.Latitude)
	}
	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		return fmt.Errorf("%w, got %v", ErrInvalidLongitude, c.Longitude)
	}
	return nil
}

// CurrentWeatherResult is a snapshot of the conditions at a location. Nil fields
// were null upstream.
type CurrentWeatherResult struct {
	Location            Coordinates `json:"location"`
	Time                string      `json:"time"`
	Temperature         *float64    `json:"temperature"`
	ApparentTemperature *float64    `json:"apparent_temperature"`
	IsDay               *bool       `json:"is_day"`
	Precipitation       *float64    `json:"precipitation"`
	Humidity            *float64    `json:"humidity"`
	WindSpeed           *float64    `json:"wind_speed"`
	WindDirection       *int        `json:"wind_direction"`
	CloudCover          *int        `json:"cloud_cover"`
	Pressure            *float64    `json:"pressure"`
	WeatherCode         *int        `json:"weather_code"`
}

// DailyForecast is the forecast for a single local day. A nil field means no
// model covers that variable for the day.
type DailyForecast struct {
	Date                     string   `json:"date"`
	MaxTemperature           *float64 `json:"max_temperature"`
	MinTemperature           *float64 `json:"min_temperature"`
	Precipitation            *float64 `json:"precipitation"`
	PrecipitationProbability *int     `json:"precipitation_probability"`
	WeatherCode              *int     `json:"weather_code"`
}

// ForecastResult holds the daily forecasts for a location in chronological order.
type ForecastResult struct {
	Location       Coordinates     `json:"location"`
	Timezone       string          `json:"timezone"`
	DailyForecasts []DailyForecast `json:"daily_forecasts"`
}

// Upstream is the subset of the Open-Meteo client used by Adapter.
type Upstream interface {
	Current(ctx context.Context, latitude, longitude float64) (*openmeteo.CurrentResponse, error)
	Daily(ctx context.Context, latitude, longitude float64) (*openmeteo.DailyResponse, error)
}

var _ Upstream = (*openmeteo.Client)(nil)

// Adapter translates coordinates into upstream requests and reshapes the responses.
type Adapter struct {
	upstream Upstream
}

// NewAdapter creates an adapter backed by upstream.
func NewAdapter(upstream Upstream) *Adapter {
	return &Adapter{upstream: upstream}
}

// GetCurrentWeather returns the current conditions at c. Invalid coordinates are
// rejected without contacting upstream.
func (a *Adapter) GetCurrentWeather(ctx context.Context, c Coordinates) (*CurrentWeatherResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	resp, err := a.upstream.Current(ctx, c.Latitude, c.Longitude)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current weather: %w", err)
	}

	cur := resp.Current
	return &CurrentWeatherResult{
		Location:            c,
		Time:                cur.Time,
		Temperature:         cur.Temperature2M,
		ApparentTemperature: cur.ApparentTemperature,
		IsDay:               isDay(cur.IsDay),
		Precipitation:       cur.Precipitation,
		Humidity:            cur.RelativeHumidity2M,
		WindSpeed:           cur.WindSpeed10M,
		WindDirection:       cur.WindDirection10M,
		CloudCover:          cur.CloudCover,
		Pressure:            cur.PressureMsl,
		WeatherCode:         cur.WeatherCode,
	}, nil
}

// GetForecast returns the daily forecast at c. Invalid coordinates are rejected
// without contacting upstream.
func (a *Adapter) GetForecast(ctx context.Context, c Coordinates) (*ForecastResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	resp, err := a.upstream.Daily(ctx, c.Latitude, c.Longitude)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	d := resp.Daily
	forecasts := make([]DailyForecast, len(d.Time))
	for i, date := range d.Time {
		forecasts[i] = DailyForecast{
			Date:                     date,
			MaxTemperature:           d.Temperature2MMax[i],
			MinTemperature:           d.Temperature2MMin[i],
			Precipitation:            d.PrecipitationSum[i],
			PrecipitationProbability: d.PrecipitationProbabilityMax[i],
			WeatherCode:              d.WeatherCode[i],
		}
	}

	return &ForecastResult{
		Location:       c,
		Timezone:       resp.Timezone,
		DailyForecasts: forecasts,
	}, nil
}

func isDay(v *int) *bool {
	if v == nil {
		return nil
	}
	b := *v != 0
	return &b
}
