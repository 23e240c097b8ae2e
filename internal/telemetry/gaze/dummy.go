package gaze

import (
	"context"
	"log"
	mrand "math/rand"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/random"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// dummyPeriod matches the cadence a real tracker feed roughly delivers at.
const dummyPeriod = 50 * time.Millisecond

// DummyProducer synthesizes a bounded random gaze walk. It stands in for the
// hardware feed in simulated sessions and tests; samples flow through the
// same sink as real ones.
type DummyProducer struct {
	player string
	sink   *Sink
	period time.Duration
	rng    *mrand.Rand
}

// NewDummyProducer builds a producer for one player. Seed 0 picks a fresh
// seed; a fixed seed reproduces the walk.
func NewDummyProducer(player string, sink *Sink, seed int64) (*DummyProducer, error) {
	rng, err := random.NewRand(seed)
	if err != nil {
		return nil, err
	}
	return &DummyProducer{
		player: player,
		sink:   sink,
		period: dummyPeriod,
		rng:    rng,
	}, nil
}

// Run emits samples until ctx is canceled.
func (p *DummyProducer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	x, y := 0.5, 0.5
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			x = clamp01(x + (p.rng.Float64()-0.5)*0.05)
			y = clamp01(y + (p.rng.Float64()-0.5)*0.05)
			conf := 0.85 + p.rng.Float64()*0.15
			sample := storage.GazeSample{
				Player:    p.player,
				X:         x,
				Y:         y,
				Conf:      &conf,
				TDeviceNS: time.Now().UnixNano(),
			}
			if err := p.sink.Write(ctx, sample); err != nil {
				log.Printf("persist dummy gaze sample for %s: %v", p.player, err)
			}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
