package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/skisignal/internal/resort"
	"github.com/i474232898/skisignal/internal/weather"
)

// DefaultOpenMeteoURL is the public forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const (
	dailyFields  = weather.FieldSnowfall + "," + weather.FieldSnowDepth + "," + weather.FieldTemperature + "," + weather.FieldWindSpeed
	hourlyFields = weather.FieldSnowDepth
)

// OpenMeteoProvider implements weather.ForecastProvider against Open-Meteo's
// daily and hourly forecast API.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider. An empty baseURL selects DefaultOpenMeteoURL.
func NewOpenMeteoProvider(client *http.Client, baseURL string, backoff BackoffConfig) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{Client: client, Backoff: backoff},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds *int   `json:"utc_offset_seconds"`

	Daily *struct {
		Time           []string   `json:"time"`
		SnowfallSum    []*float64 `json:"snowfall_sum"`
		SnowDepth      []*float64 `json:"snow_depth"`
		TemperatureMax []*float64 `json:"temperature_2m_max"`
		WindSpeedMax   []*float64 `json:"windspeed_10m_max"`
	} `json:"daily"`

	Hourly *struct {
		Time      []string   `json:"time"`
		SnowDepth []*float64 `json:"snow_depth"`
	} `json:"hourly"`
}

// FetchDays returns the first days of the resort's forecast in its local zone.
func (p *OpenMeteoProvider) FetchDays(ctx context.Context, r resort.Resort, days int) ([]weather.RawForecastSample, error) {
	if days <= 0 {
		return nil, fmt.Errorf("openmeteo: days must be positive, got %d", days)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(r.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(r.Lon, 'f', 4, 64))
		values.Set("daily", dailyFields)
		values.Set("hourly", hourlyFields)
		values.Set("timezone", "auto")
		values.Set("forecast_days", strconv.Itoa(days))

		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload openMeteoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return payload.samples(days)
}

func (pl openMeteoPayload) samples(days int) ([]weather.RawForecastSample, error) {
	d := pl.Daily
	if d == nil {
		return nil, fmt.Errorf("%w: no daily block", errMalformed)
	}
	if len(d.Time) < days {
		return nil, fmt.Errorf("%w: expected %d days, got %d", errMalformed, days, len(d.Time))
	}

	loc := pl.location()
	hourly := pl.hourlyByDate()

	out := make([]weather.RawForecastSample, 0, days)
	for i := 0; i < days; i++ {
		date := d.Time[i]
		out = append(out, weather.RawForecastSample{
			Date:             date,
			SnowfallSumMM:    at(d.SnowfallSum, i),
			SnowDepthM:       at(d.SnowDepth, i),
			TemperatureMaxC:  at(d.TemperatureMax, i),
			WindSpeedMaxKmh:  at(d.WindSpeedMax, i),
			HourlySnowDepthM: hourly[date],
			Location:         loc,
		})
	}
	return out, nil
}

// location resolves the zone the forecast dates are expressed in. The IANA name
// wins; a fixed offset is the fallback.
func (pl openMeteoPayload) location() *time.Location {
	if pl.Timezone != "" {
		if loc, err := time.LoadLocation(pl.Timezone); err == nil {
			return loc
		}
	}
	if pl.UTCOffsetSeconds != nil {
		return time.FixedZone(pl.Timezone, *pl.UTCOffsetSeconds)
	}
	return time.UTC
}

// hourlyByDate groups hourly depth points by their local date prefix.
func (pl openMeteoPayload) hourlyByDate() map[string][]*float64 {
	out := make(map[string][]*float64)
	if pl.Hourly == nil {
		return out
	}
	for i, ts := range pl.Hourly.Time {
		if len(ts) < len("2006-01-02") {
			continue
		}
		date := ts[:len("2006-01-02")]
		out[date] = append(out[date], at(pl.Hourly.SnowDepth, i))
	}
	return out
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}
