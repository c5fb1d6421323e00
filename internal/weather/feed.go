package weather

import (
	"context"
	"errors"
)

// ErrUpstream reports that a forecast feed call failed anywhere between
// transport and decoding, a non-2xx status included. Callers treat it as a
// degraded read, never as something to retry.
var ErrUpstream = errors.New("weather feed unavailable")

// ForecastFeed abstracts a raw forecast source (e.g. OpenWeatherMap,
// WeatherAPI, Open-Meteo). Fetch returns three-hourly samples covering at
// least the requested number of days ahead when the upstream has them.
type ForecastFeed interface {
	Name() string
	Fetch(ctx context.Context, city string, units Units, days int) (FeedResult, error)
}
