package providers

import (
	"context"
	"encoding/json"
	"errors"
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

// DefaultWeatherAPIURL is WeatherAPI.com's forecast endpoint.
const DefaultWeatherAPIURL = "https://api.weatherapi.com/v1/forecast.json"

var errNoAPIKey = errors.New("weatherapi api key is not configured")

// WeatherAPIProvider implements weather.ForecastProvider for WeatherAPI.com. It
// reports snowfall in centimetres and has no snow depth, so depth is always
// derived from accumulated snowfall.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIProvider creates a provider. An empty baseURL selects DefaultWeatherAPIURL.
func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string, backoff BackoffConfig) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{Client: client, Backoff: backoff},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Location struct {
		TzID string `json:"tz_id"`
	} `json:"location"`
	Forecast *struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC    *float64 `json:"maxtemp_c"`
				MaxWindKph  *float64 `json:"maxwind_kph"`
				TotalSnowCm *float64 `json:"totalsnow_cm"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// FetchDays returns the first days of the resort's forecast.
func (p *WeatherAPIProvider) FetchDays(ctx context.Context, r resort.Resort, days int) ([]weather.RawForecastSample, error) {
	if p.apiKey == "" {
		return nil, errNoAPIKey
	}
	if days <= 0 {
		return nil, fmt.Errorf("weatherapi: days must be positive, got %d", days)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", strconv.FormatFloat(r.Lat, 'f', 4, 64)+","+strconv.FormatFloat(r.Lon, 'f', 4, 64))
		values.Set("days", strconv.Itoa(days))
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload weatherAPIPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if payload.Forecast == nil || len(payload.Forecast.ForecastDay) < days {
		return nil, fmt.Errorf("%w: expected %d forecast days", errMalformed, days)
	}

	loc := time.UTC
	if tz, err := time.LoadLocation(payload.Location.TzID); err == nil && payload.Location.TzID != "" {
		loc = tz
	}

	out := make([]weather.RawForecastSample, 0, days)
	for _, fd := range payload.Forecast.ForecastDay[:days] {
		out = append(out, weather.RawForecastSample{
			Date:            fd.Date,
			SnowfallCm:      fd.Day.TotalSnowCm,
			TemperatureMaxC: fd.Day.MaxTempC,
			WindSpeedMaxKmh: fd.Day.MaxWindKph,
			Location:        loc,
		})
	}
	return out, nil
}
