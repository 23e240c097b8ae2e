package gaze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
)

func runDummy(t *testing.T, seed int64, duration time.Duration) *captureStore {
	t.Helper()
	store := &captureStore{}
	producer, err := NewDummyProducer("p1", NewSink("sess-1", store, clock.New()), seed)
	if err != nil {
		t.Fatalf("new dummy producer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	if err := producer.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run returned %v, want context.DeadlineExceeded", err)
	}
	return store
}

func TestDummyProducerWritesBoundedSamples(t *testing.T) {
	store := runDummy(t, 42, 180*time.Millisecond)

	samples := store.snapshot()
	if len(samples) == 0 {
		t.Fatal("no samples written")
	}
	for _, s := range samples {
		if s.SessionID != "sess-1" || s.Player != "p1" {
			t.Fatalf("sample labels = (%q, %q)", s.SessionID, s.Player)
		}
		if s.X < 0 || s.X > 1 || s.Y < 0 || s.Y > 1 {
			t.Fatalf("gaze position out of bounds: (%v, %v)", s.X, s.Y)
		}
		if s.Conf == nil || *s.Conf < 0.85 || *s.Conf > 1 {
			t.Fatalf("confidence out of range: %+v", s.Conf)
		}
		if s.TDeviceNS <= 0 || s.THostNS <= 0 {
			t.Fatalf("sample missing timestamps: %+v", s)
		}
	}
}

func TestDummyProducerSeedReproducesWalk(t *testing.T) {
	first := runDummy(t, 7, 120*time.Millisecond).snapshot()
	second := runDummy(t, 7, 120*time.Millisecond).snapshot()

	if len(first) == 0 || len(second) == 0 {
		t.Fatalf("walks produced %d and %d samples", len(first), len(second))
	}
	a, b := first[0], second[0]
	if a.X != b.X || a.Y != b.Y || *a.Conf != *b.Conf {
		t.Fatalf("seeded walks diverged: (%v, %v, %v) vs (%v, %v, %v)", a.X, a.Y, *a.Conf, b.X, b.Y, *b.Conf)
	}
}
