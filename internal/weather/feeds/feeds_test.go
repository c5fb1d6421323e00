package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripdesk/internal/weather"
)

const okOpenWeatherBody = `{
	"list": [
		{"dt": 1764572400, "main": {"temp": 11.2}, "weather": [{"description": "light rain", "icon": "10d"}], "pop": 0.4},
		{"dt": 1764583200, "main": {"temp": 14.8}, "weather": [{"description": "scattered clouds", "icon": "03d"}], "pop": 0},
		{"dt": 1764594000, "weather": []}
	],
	"city": {"timezone": 3600}
}`

func TestOpenWeatherFeedRequiresKey(t *testing.T) {
	_, err := NewOpenWeatherFeed(nil, "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestOpenWeatherFeedFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"q":     r.URL.Query().Get("q"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
			"cnt":   r.URL.Query().Get("cnt"),
		}
		w.Write([]byte(okOpenWeatherBody))
	}))
	defer srv.Close()

	feed, err := NewOpenWeatherFeed(srv.Client(), "test-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	res, err := feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["q"] != "Lisbon,PT" || gotQuery["appid"] != "test-key" || gotQuery["units"] != "metric" {
		t.Errorf("unexpected query: %v", gotQuery)
	}
	if gotQuery["cnt"] != "24" {
		t.Errorf("expected cnt=24 for 2 days, got %q", gotQuery["cnt"])
	}

	if res.UTCOffsetSeconds != 3600 {
		t.Errorf("expected offset 3600, got %d", res.UTCOffsetSeconds)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(res.Samples))
	}

	first := res.Samples[0]
	if first.Timestamp != 1764572400 {
		t.Errorf("expected timestamp 1764572400, got %d", first.Timestamp)
	}
	if first.Temperature == nil || *first.Temperature != 11.2 {
		t.Errorf("expected temperature 11.2, got %v", first.Temperature)
	}
	if first.Description != "light rain" || first.Icon != "10d" {
		t.Errorf("unexpected condition: %q/%q", first.Description, first.Icon)
	}
	if first.PrecipProbability == nil || *first.PrecipProbability != 0.4 {
		t.Errorf("expected precip probability 0.4, got %v", first.PrecipProbability)
	}

	bare := res.Samples[2]
	if bare.Temperature != nil || bare.Description != "" || bare.Icon != "" {
		t.Errorf("expected an empty reading to stay empty, got %+v", bare)
	}
}

func TestOpenWeatherFeedUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	feed, err := NewOpenWeatherFeed(srv.Client(), "test-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	_, err = feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 2)
	if !errors.Is(err, weather.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestOpenWeatherFeedBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	feed, err := NewOpenWeatherFeed(srv.Client(), "test-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	_, err = feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 2)
	if !errors.Is(err, weather.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for an undecodable body, got %v", err)
	}
}

// TestDoRequestSingleAttempt pins the no-retry contract: one fetch makes
// exactly one upstream request even when it fails.
func TestDoRequestSingleAttempt(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	feed, err := NewOpenWeatherFeed(srv.Client(), "test-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	if _, err := feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 2); err == nil {
		t.Fatal("expected an error")
	}
	if requests != 1 {
		t.Errorf("expected exactly 1 upstream request, got %d", requests)
	}
}

// TestBreakerShortCircuits drives the breaker open with consecutive
// failures and checks that further fetches stop reaching the upstream.
func TestBreakerShortCircuits(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	feed, err := NewOpenWeatherFeed(srv.Client(), "test-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	for i := 0; i < 10; i++ {
		if _, err := feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 2); !errors.Is(err, weather.ErrUpstream) {
			t.Fatalf("fetch %d: expected ErrUpstream, got %v", i, err)
		}
	}
	if requests >= 10 {
		t.Errorf("breaker never opened: all %d fetches reached the upstream", requests)
	}
}

const okOpenMeteoBody = `{
	"utc_offset_seconds": 7200,
	"hourly": {
		"time": [1764572400, 1764576000, 1764579600],
		"temperature_2m": [9.1, 10.4, null],
		"precipitation_probability": [55, 0, null],
		"weather_code": [61, 2, 0]
	}
}`

func TestOpenMeteoFeedRequiresGeocoderKey(t *testing.T) {
	_, err := NewOpenMeteoFeed(nil, "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestOpenMeteoFeedFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"latitude":      r.URL.Query().Get("latitude"),
			"longitude":     r.URL.Query().Get("longitude"),
			"hourly":        r.URL.Query().Get("hourly"),
			"timeformat":    r.URL.Query().Get("timeformat"),
			"forecast_days": r.URL.Query().Get("forecast_days"),
		}
		w.Write([]byte(okOpenMeteoBody))
	}))
	defer srv.Close()

	feed, err := NewOpenMeteoFeed(srv.Client(), "geo-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	var gotCity, gotCountry string
	feed.geocode = func(city, country string) (float64, float64, error) {
		gotCity, gotCountry = city, country
		return 38.7223, -9.1393, nil
	}

	res, err := feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotCity != "Lisbon" || gotCountry != "PT" {
		t.Errorf("geocoded %q/%q", gotCity, gotCountry)
	}
	if gotQuery["latitude"] != "38.7223" || gotQuery["longitude"] != "-9.1393" {
		t.Errorf("unexpected coordinates: %v", gotQuery)
	}
	if gotQuery["timeformat"] != "unixtime" || gotQuery["forecast_days"] != "4" {
		t.Errorf("unexpected query: %v", gotQuery)
	}

	if res.UTCOffsetSeconds != 7200 {
		t.Errorf("expected offset 7200, got %d", res.UTCOffsetSeconds)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(res.Samples))
	}

	first := res.Samples[0]
	if first.Temperature == nil || *first.Temperature != 9.1 {
		t.Errorf("expected temperature 9.1, got %v", first.Temperature)
	}
	if first.PrecipProbability == nil || *first.PrecipProbability != 0.55 {
		t.Errorf("expected probability 0.55, got %v", first.PrecipProbability)
	}
	if first.Description != "rain" || first.Icon != "rain" {
		t.Errorf("unexpected condition for code 61: %q/%q", first.Description, first.Icon)
	}

	last := res.Samples[2]
	if last.Temperature != nil || last.PrecipProbability != nil {
		t.Errorf("null readings should stay absent, got %+v", last)
	}
	if last.Description != "clear sky" {
		t.Errorf("unexpected description for code 0: %q", last.Description)
	}
}

func TestOpenMeteoFeedGeocodeFailure(t *testing.T) {
	feed, err := NewOpenMeteoFeed(nil, "geo-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.geocode = func(city, country string) (float64, float64, error) {
		return 0, 0, errors.New("quota exceeded")
	}

	_, err = feed.Fetch(context.Background(), "Lisbon,PT", weather.UnitsMetric, 3)
	if !errors.Is(err, weather.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

const okWeatherAPIBody = `{
	"location": {"localtime_epoch": 1764576000, "localtime": "2025-12-01 09:00"},
	"forecast": {
		"forecastday": [
			{"hour": [
				{"time_epoch": 1764572400, "temp_c": 8.5, "temp_f": 47.3, "condition": {"text": "Light rain", "icon": "//cdn.weatherapi.com/113.png"}, "chance_of_rain": 70},
				{"time_epoch": 1764576000, "temp_c": 9.5, "temp_f": 49.1, "condition": {"text": "Cloudy", "icon": "//cdn.weatherapi.com/116.png"}, "chance_of_rain": 0}
			]}
		]
	}
}`

func TestWeatherAPIFeedRequiresKey(t *testing.T) {
	_, err := NewWeatherAPIFeed(nil, "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestWeatherAPIFeedFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"key":  r.URL.Query().Get("key"),
			"q":    r.URL.Query().Get("q"),
			"days": r.URL.Query().Get("days"),
		}
		w.Write([]byte(okWeatherAPIBody))
	}))
	defer srv.Close()

	feed, err := NewWeatherAPIFeed(srv.Client(), "wapi-key")
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	feed.baseURL = srv.URL

	res, err := feed.Fetch(context.Background(), "Lisbon", weather.UnitsImperial, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["key"] != "wapi-key" || gotQuery["q"] != "Lisbon" || gotQuery["days"] != "3" {
		t.Errorf("unexpected query: %v", gotQuery)
	}

	// localtime 2025-12-01 09:00 read as UTC is 1764579600; the epoch says
	// 1764576000, so the location runs one hour ahead of UTC.
	if res.UTCOffsetSeconds != 3600 {
		t.Errorf("expected offset 3600, got %d", res.UTCOffsetSeconds)
	}

	if len(res.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(res.Samples))
	}
	first := res.Samples[0]
	if first.Temperature == nil || *first.Temperature != 47.3 {
		t.Errorf("expected the fahrenheit reading 47.3, got %v", first.Temperature)
	}
	if first.Description != "Light rain" {
		t.Errorf("unexpected description %q", first.Description)
	}
	if first.PrecipProbability == nil || *first.PrecipProbability != 0.7 {
		t.Errorf("expected probability 0.7, got %v", first.PrecipProbability)
	}
}

func TestWeatherAPIOffsetDerivation(t *testing.T) {
	cases := []struct {
		name      string
		localtime string
		epoch     int64
		want      int
	}{
		{"behind utc", "2025-12-01 04:00", 1764576000, -4 * 3600},
		{"at utc", "2025-12-01 08:00", 1764576000, 0},
		{"missing localtime", "", 1764576000, 0},
		{"missing epoch", "2025-12-01 08:00", 0, 0},
		{"garbage localtime", "yesterday", 1764576000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := weatherAPIOffset(tc.localtime, tc.epoch); got != tc.want {
				t.Errorf("offset(%q, %d) = %d, want %d", tc.localtime, tc.epoch, got, tc.want)
			}
		})
	}
}

func TestSplitCity(t *testing.T) {
	cases := []struct {
		in, city, country string
	}{
		{"Lisbon,PT", "Lisbon", "PT"},
		{"Lisbon, PT", "Lisbon", "PT"},
		{"Lisbon", "Lisbon", ""},
		{"Rio de Janeiro,BR", "Rio de Janeiro", "BR"},
	}
	for _, tc := range cases {
		city, country := splitCity(tc.in)
		if city != tc.city || country != tc.country {
			t.Errorf("splitCity(%q) = %q/%q, want %q/%q", tc.in, city, country, tc.city, tc.country)
		}
	}
}
