package weather

import "fmt"

// Units selects the measurement system requested from the upstream feed.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits validates a units string coming from config or a query parameter.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case UnitsMetric, UnitsImperial:
		return Units(s), nil
	}
	return "", fmt.Errorf("unknown units %q (want metric or imperial)", s)
}

// Sample is one raw forecast measurement as delivered by an upstream feed,
// typically at a 1-hour or 3-hour interval. Optional fields are pointers so
// that a feed omitting them is distinguishable from a zero value.
type Sample struct {
	// Timestamp is the measurement time in Unix seconds (UTC). Feeds that
	// omit it leave it zero; such samples carry no usable date and are
	// skipped during aggregation.
	Timestamp int64

	Temperature *float64

	Description string
	Icon        string

	// PrecipProbability is the precipitation probability in [0, 1].
	PrecipProbability *float64
}

// FeedResult is the normalized output of a single upstream fetch.
type FeedResult struct {
	Samples []Sample

	// UTCOffsetSeconds is the UTC offset the feed declared for the
	// requested city, zero when the feed did not declare one.
	UTCOffsetSeconds int
}

// DaySummary is the aggregated view of one local calendar day.
// TemperatureMin/Max and MaxPrecipProbability are nil when no sample of the
// day carried the corresponding reading.
type DaySummary struct {
	// Date is the local calendar date in YYYY-MM-DD form.
	Date string `json:"date"`

	TemperatureMin *float64 `json:"temperatureMin,omitempty"`
	TemperatureMax *float64 `json:"temperatureMax,omitempty"`

	// Description and Icon hold the most frequent non-empty values among
	// the day's samples; ties go to the value seen first.
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`

	MaxPrecipProbability *float64 `json:"maxPrecipitationProbability,omitempty"`

	UTCOffsetSeconds int `json:"utcOffsetSeconds"`
}
