// Package config loads the application configuration from the environment.
// Everything is read once at startup and threaded through explicitly;
// nothing below this package touches os.Getenv.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"tripdesk/internal/weather"
)

// Feed backends selectable via WEATHER_FEED.
const (
	FeedOpenWeather = "openweather"
	FeedWeatherAPI  = "weatherapi"
	FeedOpenMeteo   = "openmeteo"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreDynamo = "dynamo"
)

type AppConfig struct {
	Port string

	// Feed selects the forecast source.
	Feed              string
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	City         string
	Units        weather.Units
	ForecastDays int

	// HTTPTimeout bounds every outbound feed call.
	HTTPTimeout time.Duration

	FeedRateLimitRPS   float64
	FeedRateLimitBurst int

	// CookieSecret signs the visitor email cookie. Required.
	CookieSecret []byte
	CookieMaxAge time.Duration

	StoreBackend       string
	RegistrationsTable string

	// DynamoEndpoint overrides the DynamoDB endpoint, for dynamodb-local.
	DynamoEndpoint string

	// DigestInterval controls the registration digest job; zero disables it.
	DigestInterval time.Duration

	// RecentLimit caps the registrations shown on the landing page.
	RecentLimit int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.Feed = getenvDefault("WEATHER_FEED", FeedOpenWeather)
	switch cfg.Feed {
	case FeedOpenWeather, FeedWeatherAPI, FeedOpenMeteo:
	default:
		return nil, fmt.Errorf("invalid WEATHER_FEED %q", cfg.Feed)
	}
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.City = getenvDefault("TRIP_CITY", "Lisbon,PT")

	units, err := weather.ParseUnits(getenvDefault("WEATHER_UNITS", string(weather.UnitsMetric)))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_UNITS: %w", err)
	}
	cfg.Units = units

	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 5)
	if cfg.ForecastDays <= 0 {
		return nil, fmt.Errorf("FORECAST_DAYS must be positive, got %d", cfg.ForecastDays)
	}

	cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg.FeedRateLimitRPS = getenvFloat("FEED_RATE_LIMIT_RPS", 1)
	cfg.FeedRateLimitBurst = getenvInt("FEED_RATE_LIMIT_BURST", 5)

	secret := os.Getenv("COOKIE_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("COOKIE_SECRET is required")
	}
	cfg.CookieSecret = []byte(secret)

	cfg.CookieMaxAge, err = getenvDuration("COOKIE_MAX_AGE", "720h")
	if err != nil {
		return nil, err
	}

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", StoreMemory)
	switch cfg.StoreBackend {
	case StoreMemory, StoreDynamo:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}
	cfg.RegistrationsTable = getenvDefault("REGISTRATIONS_TABLE", "registrations")
	cfg.DynamoEndpoint = os.Getenv("DYNAMO_ENDPOINT")

	cfg.DigestInterval, err = getenvDuration("DIGEST_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	cfg.RecentLimit = getenvInt("RECENT_LIMIT", 8)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
