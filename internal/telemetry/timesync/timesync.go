// Package timesync measures and summarizes the clock offset between the
// host and tracker devices. Live estimation probes a device's time endpoint;
// offline summaries derive from the sync pairs a session recorded.
package timesync

import (
	"context"
	"log"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
)

// measureSpacing separates consecutive probes so a burst does not sample a
// single scheduling hiccup five times.
const measureSpacing = 500 * time.Millisecond

const (
	initialProbes = 5
	refreshProbes = 3
)

// DeviceClock reports a tracker's current wall clock in unix nanoseconds.
type DeviceClock interface {
	DeviceTimeNS(ctx context.Context) (int64, error)
}

// Measurement is one host-to-device offset observation. The device time is
// compared against the midpoint of the request round trip, which cancels the
// transport delay to first order.
type Measurement struct {
	// OffsetNS is the device clock minus the host clock.
	OffsetNS int64
	// RTTNS is the probe round trip on the host clock.
	RTTNS int64
	// THostNS is the host wall time at the round-trip midpoint.
	THostNS int64
	// TDeviceNS is the device wall time the probe reported.
	TDeviceNS int64
}

// Estimator measures clock offsets against one device.
type Estimator struct {
	clock   DeviceClock
	wallNS  func() int64
	spacing time.Duration
}

// EstimatorOption adjusts estimator behavior.
type EstimatorOption func(*Estimator)

// WithSpacing overrides the pause between consecutive probes.
func WithSpacing(d time.Duration) EstimatorOption {
	return func(e *Estimator) { e.spacing = d }
}

// NewEstimator builds an estimator over the given device clock.
func NewEstimator(clock DeviceClock, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		clock:   clock,
		wallNS:  func() int64 { return time.Now().UnixNano() },
		spacing: measureSpacing,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Measure takes a single offset observation.
func (e *Estimator) Measure(ctx context.Context) (Measurement, error) {
	before := e.wallNS()
	deviceNS, err := e.clock.DeviceTimeNS(ctx)
	if err != nil {
		return Measurement{}, err
	}
	after := e.wallNS()

	mid := before + (after-before)/2
	return Measurement{
		OffsetNS:  deviceNS - mid,
		RTTNS:     after - before,
		THostNS:   mid,
		TDeviceNS: deviceNS,
	}, nil
}

// Initial averages five spaced probes for the session-start offset.
func (e *Estimator) Initial(ctx context.Context) (int64, error) {
	return e.average(ctx, initialProbes)
}

// Refresh averages three probes for mid-session drift checks.
func (e *Estimator) Refresh(ctx context.Context) (int64, error) {
	return e.average(ctx, refreshProbes)
}

// average tolerates individual probe failures and averages the rest. Only
// when every probe fails does the caller get an error.
func (e *Estimator) average(ctx context.Context, probes int) (int64, error) {
	var sum int64
	var succeeded int
	var lastErr error

	for i := 0; i < probes; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(e.spacing):
			}
		}
		m, err := e.Measure(ctx)
		if err != nil {
			lastErr = err
			log.Printf("offset probe %d/%d failed: %v", i+1, probes, err)
			continue
		}
		sum += m.OffsetNS
		succeeded++
	}

	if succeeded == 0 {
		return 0, apperrors.Wrap(apperrors.CodeEndpointUnreachable, "no offset probe succeeded", lastErr)
	}
	return sum / int64(succeeded), nil
}
