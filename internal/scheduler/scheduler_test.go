package scheduler

import (
	"context"
	"testing"
	"time"

	"tripdesk/internal/registration"
	"tripdesk/internal/store"
)

func TestSummarize(t *testing.T) {
	recs := []registration.Record{
		{Destination: "Lisbon", CreatedAt: 100},
		{Destination: "Porto", CreatedAt: 300},
		{Destination: "Lisbon", CreatedAt: 200},
	}

	destinations, latest := summarize(recs)
	if destinations != 2 {
		t.Errorf("expected 2 distinct destinations, got %d", destinations)
	}
	if latest != 300 {
		t.Errorf("expected latest 300, got %d", latest)
	}

	destinations, latest = summarize(nil)
	if destinations != 0 || latest != 0 {
		t.Errorf("expected zero summary for no records, got %d/%d", destinations, latest)
	}
}

func TestDigestDisabled(t *testing.T) {
	regs := registration.NewStore(store.NewMemory(0), "registrations")
	d := NewDigest(regs, 0)

	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	d.Stop()
}

func TestDigestRunOnce(t *testing.T) {
	regs := registration.NewStore(store.NewMemory(0), "registrations")
	if _, err := regs.Create(context.Background(), "Ana", "ana@example.com", "Lisbon"); err != nil {
		t.Fatalf("create: %v", err)
	}

	d := NewDigest(regs, time.Hour)
	d.runOnce()
}
