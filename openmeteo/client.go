package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// API Docs: https://open-meteo.com/en/docs
// Sample request: https://api.open-meteo.com/v1/forecast?latitude=52.52&longitude=13.41&current=temperature_2m,weather_code
const (
	DefaultBaseURL      = "https://api.open-meteo.com/v1"
	DefaultUserAgent    = "mcp-server-weather/0.1.0"
	DefaultTimeout      = 30 * time.Second
	DefaultForecastDays = 7

	// MaxForecastDays is the longest horizon the forecast endpoint serves.
	MaxForecastDays = 16

	maxBodySize      = 4 << 20
	maxMessageLength = 512
)

var currentVars = []string{
	"temperature_2m",
	"is_day",
	"cloud_cover",
	"wind_speed_10m",
	"wind_direction_10m",
	"pressure_msl",
	"precipitation",
	"relative_humidity_2m",
	"apparent_temperature",
	"weather_code",
}

var dailyVars = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"precipitation_probability_max",
	"weather_code",
}

// ClientOptions configures a Client. Zero values fall back to the defaults above.
type ClientOptions struct {
	HTTPClient   *http.Client
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	ForecastDays int
}

// Client calls the Open-Meteo forecast endpoint.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	forecastDays int
}

// NewClient creates a client. opts may be nil.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	c := &Client{
		httpClient:   opts.HTTPClient,
		baseURL:      opts.BaseURL,
		userAgent:    opts.UserAgent,
		forecastDays: opts.ForecastDays,
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.forecastDays == 0 {
		c.forecastDays = DefaultForecastDays
	}
	return c
}

// Current fetches current conditions at the given coordinates.
func (c *Client) Current(ctx context.Context, latitude, longitude float64) (*CurrentResponse, error) {
	q := coordinateQuery(latitude, longitude)
	q.Set("current", strings.Join(currentVars, ","))

	var resp CurrentResponse
	if err := c.get(ctx, q, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusOK, Message: "unexpected payload", Err: err}
	}
	return &resp, nil
}

// Daily fetches the daily forecast at the given coordinates. Dates are in the
// location's local timezone.
func (c *Client) Daily(ctx context.Context, latitude, longitude float64) (*DailyResponse, error) {
	q := coordinateQuery(latitude, longitude)
	q.Set("daily", strings.Join(dailyVars, ","))
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(c.forecastDays))

	var resp DailyResponse
	if err := c.get(ctx, q, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusOK, Message: "unexpected payload", Err: err}
	}
	return &resp, nil
}

func coordinateQuery(latitude, longitude float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	return q
}

func (c *Client) get(ctx context.Context, q url.Values, v any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	u = u.JoinPath("forecast")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Message: "failed to fetch", Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response",
			Err:        fmt.Errorf("%w: %w", ErrMalformedResponse, err),
		}
	}
	return nil
}

// errorMessage prefers the reason of an Open-Meteo error document and falls
// back to the raw body.
func errorMessage(status int, body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Reason != "" {
		return apiErr.Reason
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageLength {
		i := maxMessageLength
		for i > 0 && !utf8.RuneStart(msg[i]) {
			i--
		}
		msg = msg[:i]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg
}
