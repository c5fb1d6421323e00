package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"tripdesk/internal/weather"
)

// openMeteoMaxDays is the forecast horizon the API supports.
const openMeteoMaxDays = 16

// OpenMeteoFeed reads the Open-Meteo hourly forecast. The API is keyed by
// coordinates, so every fetch first resolves the city through the Google
// geocoding API.
type OpenMeteoFeed struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker

	geocode func(city, country string) (float64, float64, error)
}

// NewOpenMeteoFeed creates the feed. Open-Meteo itself is unauthenticated;
// the geocoder key is the credential required here.
func NewOpenMeteoFeed(client *http.Client, geocoderKey string) (*OpenMeteoFeed, error) {
	if geocoderKey == "" {
		return nil, fmt.Errorf("%w: geocoder api key", ErrMissingCredential)
	}
	geocoder.ApiKey = geocoderKey

	return &OpenMeteoFeed{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: newBreaker("openmeteo"),
		geocode: func(city, country string) (float64, float64, error) {
			loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
			if err != nil {
				return 0, 0, err
			}
			return loc.Latitude, loc.Longitude, nil
		},
	}, nil
}

func (f *OpenMeteoFeed) Name() string {
	return f.name
}

func (f *OpenMeteoFeed) Fetch(ctx context.Context, city string, units weather.Units, days int) (weather.FeedResult, error) {
	cityName, country := splitCity(city)
	lat, lon, err := f.geocode(cityName, country)
	if err != nil {
		return weather.FeedResult{}, fmt.Errorf("%w: geocode %q: %v", weather.ErrUpstream, city, err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("hourly", "temperature_2m,precipitation_probability,weather_code")
		values.Set("timeformat", "unixtime")
		values.Set("timezone", "auto")
		if units == weather.UnitsImperial {
			values.Set("temperature_unit", "fahrenheit")
		}

		// One extra day covers the local-today rows the aggregation drops.
		fd := days + 1
		if fd > openMeteoMaxDays || fd <= 0 {
			fd = openMeteoMaxDays
		}
		values.Set("forecast_days", strconv.Itoa(fd))

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", f.baseURL, values.Encode()), nil)
	}

	resp, err := doRequest(ctx, f.client, f.circuit, buildRequest)
	if err != nil {
		return weather.FeedResult{}, err
	}

	var payload struct {
		UTCOffsetSeconds int `json:"utc_offset_seconds"`
		Hourly           struct {
			Time                     []int64    `json:"time"`
			Temperature2m            []*float64 `json:"temperature_2m"`
			PrecipitationProbability []*float64 `json:"precipitation_probability"`
			WeatherCode              []int      `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return weather.FeedResult{}, err
	}

	samples := make([]weather.Sample, 0, len(payload.Hourly.Time))
	for i, ts := range payload.Hourly.Time {
		s := weather.Sample{Timestamp: ts}
		if i < len(payload.Hourly.Temperature2m) {
			s.Temperature = payload.Hourly.Temperature2m[i]
		}
		if i < len(payload.Hourly.PrecipitationProbability) {
			if p := payload.Hourly.PrecipitationProbability[i]; p != nil {
				frac := *p / 100
				s.PrecipProbability = &frac
			}
		}
		if i < len(payload.Hourly.WeatherCode) {
			s.Description, s.Icon = openMeteoCondition(payload.Hourly.WeatherCode[i])
		}
		samples = append(samples, s)
	}

	return weather.FeedResult{
		Samples:          samples,
		UTCOffsetSeconds: payload.UTCOffsetSeconds,
	}, nil
}

// splitCity splits a "City,CC" pair into its parts.
func splitCity(city string) (string, string) {
	if i := strings.Index(city, ","); i >= 0 {
		return strings.TrimSpace(city[:i]), strings.TrimSpace(city[i+1:])
	}
	return strings.TrimSpace(city), ""
}

// openMeteoCondition maps a WMO weather code to a description and icon
// slug (simplified).
func openMeteoCondition(code int) (string, string) {
	switch {
	case code == 0:
		return "clear sky", "clear"
	case code >= 1 && code <= 3:
		return "partly cloudy", "cloudy"
	case code == 45 || code == 48:
		return "fog", "fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return "rain", "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow", "snow"
	case code >= 95:
		return "thunderstorm", "storm"
	default:
		return "", ""
	}
}

var _ weather.ForecastFeed = (*OpenMeteoFeed)(nil)
