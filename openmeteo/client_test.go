package openmeteo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

const currentBody = `{
  "latitude": 52.52,
  "longitude": 13.419998,
  "generationtime_ms": 0.05,
  "utc_offset_seconds": 0,
  "timezone": "GMT",
  "elevation": 38.0,
  "current_units": {"temperature_2m": "°C"},
  "current": {
    "time": "2026-10-19T12:00",
    "interval": 900,
    "temperature_2m": 11.4,
    "is_day": 1,
    "cloud_cover": 75,
    "wind_speed_10m": 14.8,
    "wind_direction_10m": 241,
    "pressure_msl": 1012.3,
    "precipitation": 0.2,
    "relative_humidity_2m": 81,
    "apparent_temperature": 8.9,
    "weather_code": 61
  }
}`

const dailyBody = `{
  "latitude": 52.52,
  "longitude": 13.419998,
  "timezone": "Europe/Berlin",
  "daily": {
    "time": ["2026-10-19", "2026-10-20"],
    "temperature_2m_max": [13.1, 15.0],
    "temperature_2m_min": [6.2, 7.7],
    "precipitation_sum": [1.4, 0.0],
    "precipitation_probability_max": [64, null],
    "weather_code": [61, 3]
  }
}`

func ptr[T any](v T) *T { return &v }

type capturedRequest struct {
	path      string
	query     url.Values
	userAgent string
	accept    string
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, <-chan capturedRequest) {
	t.Helper()
	var calls atomic.Int32
	reqs := make(chan capturedRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case reqs <- capturedRequest{
			path:      r.URL.Path,
			query:     r.URL.Query(),
			userAgent: r.Header.Get("User-Agent"),
			accept:    r.Header.Get("Accept"),
		}:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, reqs
}

func TestClient_Current(t *testing.T) {
	t.Parallel()

	srv, _, reqs := newTestServer(t, http.StatusOK, currentBody)

	c := NewClient(&ClientOptions{BaseURL: srv.URL + "/v1"})
	resp, err := c.Current(context.Background(), 52.52, 13.41)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	r := <-reqs
	path, query, userAgent, accept := r.path, r.query, r.userAgent, r.accept

	if path != "/v1/forecast" {
		t.Errorf("path = %q, want %q", path, "/v1/forecast")
	}
	if got := query.Get("latitude"); got != "52.52" {
		t.Errorf("latitude = %q, want %q", got, "52.52")
	}
	if got := query.Get("longitude"); got != "13.41" {
		t.Errorf("longitude = %q, want %q", got, "13.41")
	}
	if got, want := query.Get("current"), strings.Join(currentVars, ","); got != want {
		t.Errorf("current = %q, want %q", got, want)
	}
	if userAgent != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", userAgent, DefaultUserAgent)
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q, want %q", accept, "application/json")
	}

	want := &Current{
		Time:                "2026-10-19T12:00",
		Interval:            900,
		Temperature2M:       ptr(11.4),
		ApparentTemperature: ptr(8.9),
		IsDay:               ptr(1),
		Precipitation:       ptr(0.2),
		RelativeHumidity2M:  ptr(81.0),
		WindSpeed10M:        ptr(14.8),
		WindDirection10M:    ptr(241),
		CloudCover:          ptr(75),
		PressureMsl:         ptr(1012.3),
		WeatherCode:         ptr(61),
	}
	if diff := cmp.Diff(want, resp.Current); diff != "" {
		t.Errorf("Current mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Daily(t *testing.T) {
	t.Parallel()

	srv, _, reqs := newTestServer(t, http.StatusOK, dailyBody)

	c := NewClient(&ClientOptions{BaseURL: srv.URL, ForecastDays: 2, UserAgent: "test-agent"})
	resp, err := c.Daily(context.Background(), 52.52, 13.41)
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}

	r := <-reqs
	query := r.query
	if r.userAgent != "test-agent" {
		t.Errorf("User-Agent = %q, want %q", r.userAgent, "test-agent")
	}

	if got, want := query.Get("daily"), strings.Join(dailyVars, ","); got != want {
		t.Errorf("daily = %q, want %q", got, want)
	}
	if got := query.Get("timezone"); got != "auto" {
		t.Errorf("timezone = %q, want %q", got, "auto")
	}
	if got := query.Get("forecast_days"); got != "2" {
		t.Errorf("forecast_days = %q, want %q", got, "2")
	}

	want := &Daily{
		Time:                        []string{"2026-10-19", "2026-10-20"},
		Temperature2MMax:            []*float64{ptr(13.1), ptr(15.0)},
		Temperature2MMin:            []*float64{ptr(6.2), ptr(7.7)},
		PrecipitationSum:            []*float64{ptr(1.4), ptr(0.0)},
		PrecipitationProbabilityMax: []*int{ptr(64), nil},
		WeatherCode:                 []*int{ptr(61), ptr(3)},
	}
	if diff := cmp.Diff(want, resp.Daily); diff != "" {
		t.Errorf("Daily mismatch (-want +got):\n%s", diff)
	}
	if resp.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q, want %q", resp.Timezone, "Europe/Berlin")
	}
}

func TestClient_NullValues(t *testing.T) {
	t.Parallel()

	t.Run("current", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newTestServer(t, http.StatusOK, `{"current": {"time": "2026-10-19T12:00", "interval": 900, "temperature_2m": null, "apparent_temperature": null, "is_day": null, "precipitation": null, "relative_humidity_2m": null, "wind_speed_10m": null, "wind_direction_10m": null, "cloud_cover": null, "pressure_msl": null, "weather_code": null}}`)
		resp, err := NewClient(&ClientOptions{BaseURL: srv.URL}).Current(context.Background(), 0, 0)
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		want := &Current{Time: "2026-10-19T12:00", Interval: 900}
		if diff := cmp.Diff(want, resp.Current); diff != "" {
			t.Errorf("Current mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("daily", func(t *testing.T) {
		t.Parallel()

		srv, _, _ := newTestServer(t, http.StatusOK, `{"daily": {"time": ["2026-10-19", "2026-10-20"], "temperature_2m_max": [13.1, null], "temperature_2m_min": [6.2, null], "precipitation_sum": [0.0, null], "precipitation_probability_max": [64, null], "weather_code": [61, null]}}`)
		resp, err := NewClient(&ClientOptions{BaseURL: srv.URL}).Daily(context.Background(), 0, 0)
		if err != nil {
			t.Fatalf("Daily() error = %v", err)
		}
		want := &Daily{
			Time:                        []string{"2026-10-19", "2026-10-20"},
			Temperature2MMax:            []*float64{ptr(13.1), nil},
			Temperature2MMin:            []*float64{ptr(6.2), nil},
			PrecipitationSum:            []*float64{ptr(0.0), nil},
			PrecipitationProbabilityMax: []*int{ptr(64), nil},
			WeatherCode:                 []*int{ptr(61), nil},
		}
		if diff := cmp.Diff(want, resp.Daily); diff != "" {
			t.Errorf("Daily mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		daily         bool
		wantStatus    int
		wantMessage   string
		wantMalformed bool
	}{
		{
			name:        "server error",
			status:      http.StatusServiceUnavailable,
			body:        "",
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Service Unavailable",
		},
		{
			name:        "bad gateway with body",
			status:      http.StatusBadGateway,
			body:        "upstream exploded\n",
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream exploded",
		},
		{
			name:        "open-meteo error document",
			status:      http.StatusBadRequest,
			body:        `{"error":true,"reason":"Latitude must be in range of -90 to 90°. Given: 91.0."}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Latitude must be in range of -90 to 90°. Given: 91.0.",
		},
		{
			name:        "long body cut at a rune boundary",
			status:      http.StatusBadGateway,
			body:        strings.Repeat("a", maxMessageLength-1) + "°C",
			wantStatus:  http.StatusBadGateway,
			wantMessage: strings.Repeat("a", maxMessageLength-1),
		},
		{
			name:          "invalid json",
			status:        http.StatusOK,
			body:          `{"current": `,
			wantStatus:    http.StatusOK,
			wantMessage:   "failed to decode response",
			wantMalformed: true,
		},
		{
			name:          "missing current block",
			status:        http.StatusOK,
			body:          `{"latitude": 1, "longitude": 2}`,
			wantStatus:    http.StatusOK,
			wantMessage:   "unexpected payload",
			wantMalformed: true,
		},
		{
			name:          "missing daily block",
			status:        http.StatusOK,
			body:          `{"latitude": 1, "longitude": 2}`,
			daily:         true,
			wantStatus:    http.StatusOK,
			wantMessage:   "unexpected payload",
			wantMalformed: true,
		},
		{
			name:          "ragged daily columns",
			status:        http.StatusOK,
			body:          `{"daily": {"time": ["2026-10-19", "2026-10-20"], "temperature_2m_max": [1], "temperature_2m_min": [1, 2], "precipitation_sum": [0, 0], "precipitation_probability_max": [1, 2], "weather_code": [0, 0]}}`,
			daily:         true,
			wantStatus:    http.StatusOK,
			wantMessage:   "unexpected payload",
			wantMalformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _, _ := newTestServer(t, tt.status, tt.body)
			c := NewClient(&ClientOptions{BaseURL: srv.URL})

			var err error
			if tt.daily {
				_, err = c.Daily(context.Background(), 10, 20)
			} else {
				_, err = c.Current(context.Background(), 10, 20)
			}

			var upstreamErr *UpstreamError
			if !errors.As(err, &upstreamErr) {
				t.Fatalf("error = %v, want *UpstreamError", err)
			}
			if upstreamErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", upstreamErr.StatusCode, tt.wantStatus)
			}
			if upstreamErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", upstreamErr.Message, tt.wantMessage)
			}
			if !utf8.ValidString(upstreamErr.Message) {
				t.Errorf("Message is not valid UTF-8: %q", upstreamErr.Message)
			}
			if got := errors.Is(err, ErrMalformedResponse); got != tt.wantMalformed {
				t.Errorf("errors.Is(err, ErrMalformedResponse) = %v, want %v", got, tt.wantMalformed)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := NewClient(&ClientOptions{BaseURL: baseURL})
	_, err := c.Current(context.Background(), 0, 0)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if upstreamErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", upstreamErr.StatusCode)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv, calls, _ := newTestServer(t, http.StatusOK, currentBody)
	c := NewClient(&ClientOptions{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Current(ctx, 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("upstream called %d times, want 0", n)
	}
}

func TestUpstreamError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *UpstreamError
		want string
	}{
		{
			name: "status only",
			err:  &UpstreamError{StatusCode: 503, Message: "Service Unavailable"},
			want: "open-meteo (status 503): Service Unavailable",
		},
		{
			name: "wrapped",
			err:  &UpstreamError{Message: "failed to fetch", Err: errors.New("connection refused")},
			want: "open-meteo: failed to fetch: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
