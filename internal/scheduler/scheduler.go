// Package scheduler runs the periodic registration digest: a log line
// summarizing recent signups so operators can watch volume without
// querying the table.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"tripdesk/internal/registration"
)

// digestLimit caps how many recent registrations each digest inspects.
const digestLimit = 50

// digestTimeout bounds the store reads of a single digest run.
const digestTimeout = 30 * time.Second

// Digest periodically summarizes recent registrations.
type Digest struct {
	scheduler *gocron.Scheduler
	store     *registration.Store
	interval  time.Duration
}

// NewDigest creates a Digest reading from the given store.
func NewDigest(store *registration.Store, interval time.Duration) *Digest {
	return &Digest{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
	}
}

// Start schedules the digest job and starts the underlying scheduler.
// An interval of zero or less disables the digest.
func (d *Digest) Start() error {
	if d.interval <= 0 {
		slog.Info("registration digest disabled")
		return nil
	}

	_, err := d.scheduler.Every(d.interval).Do(d.runOnce)
	if err != nil {
		return err
	}

	d.scheduler.StartAsync()
	return nil
}

func (d *Digest) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	recs := d.store.List(ctx, digestLimit)
	destinations, latest := summarize(recs)

	slog.Info("registration digest",
		"recent", len(recs),
		"destinations", destinations,
		"latest_created_at", latest,
	)
}

// summarize reduces records to the number of distinct destinations and the
// newest creation time.
func summarize(recs []registration.Record) (destinations int, latest int64) {
	seen := make(map[string]struct{})
	for _, r := range recs {
		seen[r.Destination] = struct{}{}
		if r.CreatedAt > latest {
			latest = r.CreatedAt
		}
	}
	return len(seen), latest
}

// Stop stops the scheduler and cancels any future runs.
func (d *Digest) Stop() {
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
}
