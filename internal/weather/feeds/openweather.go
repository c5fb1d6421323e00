package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"tripdesk/internal/weather"
)

// openWeatherMaxCount is the most list entries the 5 day / 3 hour endpoint
// will ever return.
const openWeatherMaxCount = 40

// OpenWeatherFeed reads the OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherFeed struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherFeed creates the feed. The API key is required up front.
func NewOpenWeatherFeed(client *http.Client, apiKey string) (*OpenWeatherFeed, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openweather api key", ErrMissingCredential)
	}

	return &OpenWeatherFeed{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		client:  client,
		circuit: newBreaker("openweather"),
	}, nil
}

func (f *OpenWeatherFeed) Name() string {
	return f.name
}

func (f *OpenWeatherFeed) Fetch(ctx context.Context, city string, units weather.Units, days int) (weather.FeedResult, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", f.apiKey)
		values.Set("q", city)
		values.Set("units", string(units))

		// One extra day of entries covers the local-today rows the
		// aggregation drops.
		cnt := (days + 1) * 8
		if cnt > openWeatherMaxCount || cnt <= 0 {
			cnt = openWeatherMaxCount
		}
		values.Set("cnt", strconv.Itoa(cnt))

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", f.baseURL, values.Encode()), nil)
	}

	resp, err := doRequest(ctx, f.client, f.circuit, buildRequest)
	if err != nil {
		return weather.FeedResult{}, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp *float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
			Pop *float64 `json:"pop"`
		} `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return weather.FeedResult{}, err
	}

	samples := make([]weather.Sample, 0, len(payload.List))
	for _, item := range payload.List {
		s := weather.Sample{
			Timestamp:         item.Dt,
			Temperature:       item.Main.Temp,
			PrecipProbability: item.Pop,
		}
		if len(item.Weather) > 0 {
			s.Description = item.Weather[0].Description
			s.Icon = item.Weather[0].Icon
		}
		samples = append(samples, s)
	}

	return weather.FeedResult{
		Samples:          samples,
		UTCOffsetSeconds: payload.City.Timezone,
	}, nil
}

var _ weather.ForecastFeed = (*OpenWeatherFeed)(nil)
