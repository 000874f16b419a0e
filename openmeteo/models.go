package openmeteo

import "fmt"

// CurrentResponse is the body of a forecast request asking only for current conditions.
type CurrentResponse struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	GenerationtimeMs float64           `json:"generationtime_ms"`
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Timezone         string            `json:"timezone"`
	Elevation        float64           `json:"elevation"`
	CurrentUnits     map[string]string `json:"current_units"`
	Current          *Current          `json:"current"`
}

// Current holds the values of the current block. Percentages, directions and
// WMO codes are integers upstream. Every variable is nil when upstream sends null.
type Current struct {
	Time                string   `json:"time"`
	Interval            int      `json:"interval"`
	Temperature2M       *float64 `json:"temperature_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	IsDay               *int     `json:"is_day"`
	Precipitation       *float64 `json:"precipitation"`
	RelativeHumidity2M  *float64 `json:"relative_humidity_2m"`
	WindSpeed10M        *float64 `json:"wind_speed_10m"`
	WindDirection10M    *int     `json:"wind_direction_10m"`
	CloudCover          *int     `json:"cloud_cover"`
	PressureMsl         *float64 `json:"pressure_msl"`
	WeatherCode         *int     `json:"weather_code"`
}

func (r *CurrentResponse) validate() error {
	if r.Current == nil {
		return fmt.Errorf("%w: missing current block", ErrMalformedResponse)
	}
	return nil
}

// DailyResponse is the body of a forecast request asking only for daily aggregates.
type DailyResponse struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	GenerationtimeMs float64           `json:"generationtime_ms"`
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Timezone         string            `json:"timezone"`
	Elevation        float64           `json:"elevation"`
	DailyUnits       map[string]string `json:"daily_units"`
	Daily            *Daily            `json:"daily"`
}

// Daily holds the column-oriented daily block; index i of every slice belongs
// to Time[i]. Upstream sends null for days a model does not cover.
type Daily struct {
	Time                        []string   `json:"time"`
	Temperature2MMax            []*float64 `json:"temperature_2m_max"`
	Temperature2MMin            []*float64 `json:"temperature_2m_min"`
	PrecipitationSum            []*float64 `json:"precipitation_sum"`
	PrecipitationProbabilityMax []*int     `json:"precipitation_probability_max"`
	WeatherCode                 []*int     `json:"weather_code"`
}

func (r *DailyResponse) validate() error {
	if r.Daily == nil {
		return fmt.Errorf("%w: missing daily block", ErrMalformedResponse)
	}
	d := r.Daily
	n := len(d.Time)
	for name, l := range map[string]int{
		"temperature_2m_max":            len(d.Temperature2MMax),
		"temperature_2m_min":            len(d.Temperature2MMin),
		"precipitation_sum":             len(d.PrecipitationSum),
		"precipitation_probability_max": len(d.PrecipitationProbabilityMax),
		"weather_code":                  len(d.WeatherCode),
	} {
		if l != n {
			return fmt.Errorf("%w: daily %s has %d values for %d days", ErrMalformedResponse, name, l, n)
		}
	}
	return nil
}

// apiError is the document upstream returns with 4xx statuses.
type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}
