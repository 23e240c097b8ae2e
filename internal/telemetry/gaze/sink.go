// Package gaze persists eye-tracker gaze samples alongside the event journal.
// The sample path is independent of the event pipeline: any producer with the
// GazeSample shape plugs in, whether a live tracker feed or a dummy generator.
package gaze

import (
	"context"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// Sink appends gaze samples to the session store, stamping session id, host
// wall time, and the local monotonic time when the producer left them unset.
//
// A nil Sink discards samples, which is how a session runs with gaze capture
// disabled.
type Sink struct {
	sessionID string
	store     storage.GazeStore
	wallNS    func() int64
	monoNS    func() int64
}

// NewSink builds a sink for one session. The identity clock supplies the
// monotonic timestamps shared with the event journal; it may be nil.
func NewSink(sessionID string, store storage.GazeStore, clk *clock.IdentityClock) *Sink {
	s := &Sink{
		sessionID: sessionID,
		store:     store,
		wallNS:    func() int64 { return time.Now().UnixNano() },
	}
	if clk != nil {
		s.monoNS = clk.NowNS
	}
	return s
}

// Write appends one sample. It is a no-op when the sink is nil or disabled.
func (s *Sink) Write(ctx context.Context, sample storage.GazeSample) error {
	if s == nil || s.store == nil {
		return nil
	}
	if sample.SessionID == "" {
		sample.SessionID = s.sessionID
	}
	if sample.THostNS == 0 {
		sample.THostNS = s.wallNS()
	}
	if sample.TMonoNS == 0 && s.monoNS != nil {
		sample.TMonoNS = s.monoNS()
	}
	return s.store.AppendGazeSample(ctx, sample)
}
