package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/skisignal/internal/weather"
	"github.com/i474232898/skisignal/internal/weather/providers"
)

const maxUpstreamRetries = 5

type AppConfig struct {
	Port string

	// Upstream forecast source.
	OpenMeteoBaseURL   string
	UpstreamTimeout    time.Duration
	UpstreamMaxRetries int

	// Optional fallback source, enabled when the key is set.
	WeatherAPIKey     string
	WeatherAPIBaseURL string

	// SnowRatio is cm of snow per mm of water equivalent.
	SnowRatio float64

	// Forecast cache retention and warming. WarmInterval 0 disables warming.
	CacheMaxAge  time.Duration
	WarmInterval time.Duration

	// Optional overrides; empty means the embedded defaults.
	ResortsFile       string
	ScoringPolicyFile string

	LogLevel        string
	AppEnv          string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after merging an optional .env
// file, and applies defaults for anything unset.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		OpenMeteoBaseURL:  getenvDefault("OPEN_METEO_BASE_URL", providers.DefaultOpenMeteoURL),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		WeatherAPIBaseURL: getenvDefault("WEATHERAPI_BASE_URL", providers.DefaultWeatherAPIURL),
		ResortsFile:       os.Getenv("RESORTS_FILE"),
		ScoringPolicyFile: os.Getenv("SCORING_POLICY_FILE"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		AppEnv:            getenvDefault("APP_ENV", "development"),
	}

	var err error
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", 8*time.Second, false); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", 6*time.Hour, false); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", 15*time.Minute, true); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, false); err != nil {
		return nil, err
	}

	if cfg.UpstreamMaxRetries, err = getenvInt("UPSTREAM_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.UpstreamMaxRetries < 0 || cfg.UpstreamMaxRetries > maxUpstreamRetries {
		return nil, fmt.Errorf("invalid UPSTREAM_MAX_RETRIES: must be between 0 and %d", maxUpstreamRetries)
	}

	if cfg.SnowRatio, err = getenvFloat("SNOW_RATIO", weather.DefaultSnowRatio); err != nil {
		return nil, err
	}
	if cfg.SnowRatio <= 0 {
		return nil, errors.New("invalid SNOW_RATIO: must be positive")
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	return cfg, nil
}

// Backoff returns the retry policy for upstream calls.
func (c *AppConfig) Backoff() providers.BackoffConfig {
	b := providers.DefaultBackoff()
	b.MaxRetries = c.UpstreamMaxRetries
	return b
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
