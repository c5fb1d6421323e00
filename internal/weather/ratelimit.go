package weather

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedFeed wraps a ForecastFeed with a client-side rate limit so a
// burst of page loads cannot burn through an upstream quota.
type RateLimitedFeed struct {
	feed    ForecastFeed
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedFeed creates a rate limited feed.
// rps is the maximum requests per second allowed (can be fractional for
// less than one request per second), burst the maximum burst size.
func NewRateLimitedFeed(feed ForecastFeed, rps float64, burst int) *RateLimitedFeed {
	return &RateLimitedFeed{
		feed:    feed,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [rate limited]", feed.Name()),
	}
}

// Name returns the wrapped feed's name tagged with the limiter.
func (r *RateLimitedFeed) Name() string {
	return r.name
}

// Fetch waits for limiter permission or context cancellation, then
// delegates to the wrapped feed.
func (r *RateLimitedFeed) Fetch(ctx context.Context, city string, units Units, days int) (FeedResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return FeedResult{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.feed.Fetch(ctx, city, units, days)
}

var _ ForecastFeed = (*RateLimitedFeed)(nil)
