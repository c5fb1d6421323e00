package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"tripdesk/internal/weather"
)

// weatherAPILocaltimeLayout is the wall-clock format of location.localtime.
const weatherAPILocaltimeLayout = "2006-01-02 15:04"

// WeatherAPIFeed reads the WeatherAPI.com hourly forecast.
type WeatherAPIFeed struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIFeed creates the feed. The API key is required up front.
func NewWeatherAPIFeed(client *http.Client, apiKey string) (*WeatherAPIFeed, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: weatherapi api key", ErrMissingCredential)
	}

	return &WeatherAPIFeed{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		client:  client,
		circuit: newBreaker("weatherapi"),
	}, nil
}

func (f *WeatherAPIFeed) Name() string {
	return f.name
}

func (f *WeatherAPIFeed) Fetch(ctx context.Context, city string, units weather.Units, days int) (weather.FeedResult, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", f.apiKey)
		values.Set("q", city)

		// One extra day covers the local-today rows the aggregation drops.
		values.Set("days", strconv.Itoa(days+1))

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", f.baseURL, values.Encode()), nil)
	}

	resp, err := doRequest(ctx, f.client, f.circuit, buildRequest)
	if err != nil {
		return weather.FeedResult{}, err
	}

	var payload struct {
		Location struct {
			LocaltimeEpoch int64  `json:"localtime_epoch"`
			Localtime      string `json:"localtime"`
		} `json:"location"`
		Forecast struct {
			Forecastday []struct {
				Hour []struct {
					TimeEpoch int64    `json:"time_epoch"`
					TempC     *float64 `json:"temp_c"`
					TempF     *float64 `json:"temp_f"`
					Condition struct {
						Text string `json:"text"`
						Icon string `json:"icon"`
					} `json:"condition"`
					ChanceOfRain *float64 `json:"chance_of_rain"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return weather.FeedResult{}, err
	}

	var samples []weather.Sample
	for _, day := range payload.Forecast.Forecastday {
		for _, hour := range day.Hour {
			s := weather.Sample{
				Timestamp:   hour.TimeEpoch,
				Temperature: hour.TempC,
				Description: hour.Condition.Text,
				Icon:        hour.Condition.Icon,
			}
			if units == weather.UnitsImperial {
				s.Temperature = hour.TempF
			}
			if hour.ChanceOfRain != nil {
				frac := *hour.ChanceOfRain / 100
				s.PrecipProbability = &frac
			}
			samples = append(samples, s)
		}
	}

	return weather.FeedResult{
		Samples:          samples,
		UTCOffsetSeconds: weatherAPIOffset(payload.Location.Localtime, payload.Location.LocaltimeEpoch),
	}, nil
}

// weatherAPIOffset derives the location's UTC offset from the local wall
// clock and the matching epoch. The API never reports the offset directly.
func weatherAPIOffset(localtime string, epoch int64) int {
	if localtime == "" || epoch == 0 {
		return 0
	}
	wall, err := time.ParseInLocation(weatherAPILocaltimeLayout, localtime, time.UTC)
	if err != nil {
		return 0
	}
	return int(wall.Unix() - epoch)
}

var _ weather.ForecastFeed = (*WeatherAPIFeed)(nil)
