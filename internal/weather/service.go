package weather

import (
	"context"
	"log/slog"
	"time"
)

// Service turns raw feed samples into the daily forecast the rest of the
// application consumes. It owns the outbound timeout; the feed itself only
// sees the bounded context.
type Service struct {
	feed    ForecastFeed
	timeout time.Duration
}

// NewService creates a Service over the given feed. A timeout of zero
// leaves the caller's context untouched.
func NewService(feed ForecastFeed, timeout time.Duration) *Service {
	return &Service{
		feed:    feed,
		timeout: timeout,
	}
}

// DailyForecast fetches fresh samples and folds them into per-day
// summaries for the coming days. Requests for zero or fewer days return an
// empty forecast without touching the feed. Every call goes upstream;
// nothing is cached between calls.
func (s *Service) DailyForecast(ctx context.Context, city string, units Units, days int) ([]DaySummary, error) {
	if days <= 0 {
		return []DaySummary{}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.feed.Fetch(ctx, city, units, days)
	if err != nil {
		return nil, err
	}

	slog.Debug("forecast samples fetched",
		"feed", s.feed.Name(),
		"city", city,
		"samples", len(res.Samples),
		"utc_offset_seconds", res.UTCOffsetSeconds,
	)
	return DailySummaries(res.Samples, res.UTCOffsetSeconds, days), nil
}
