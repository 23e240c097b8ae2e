// Package syncpair derives fixation sync pairs from the event stream. A pair
// brackets one calibration flash: the flash_start and flash_end events carry
// the local timestamps later aligned against the device clock.
package syncpair

import (
	"context"
	"log"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/platform/id"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// PairKindFlash labels pairs derived from the fixation flash markers.
const PairKindFlash = "fix.flash"

type pendingStart struct {
	eventID  string
	player   string
	tLocalNS int64
}

// Recorder runs the per-session Idle/AwaitingEnd state machine over observed
// events and appends completed pairs to the store. One Recorder serves one
// session; calls are expected on the session's single append path.
type Recorder struct {
	store      storage.SyncPairStore
	newID      func() (string, error)
	logDiscard bool

	pending *pendingStart
}

// Option adjusts recorder behavior.
type Option func(*Recorder)

// WithDiscardLogging makes a pending start discarded at seal visible in the
// session log instead of vanishing silently.
func WithDiscardLogging() Option {
	return func(r *Recorder) { r.logDiscard = true }
}

// WithIDGenerator overrides pair id generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(r *Recorder) { r.newID = fn }
}

// NewRecorder builds a recorder writing pairs through store.
func NewRecorder(store storage.SyncPairStore, opts ...Option) *Recorder {
	r := &Recorder{store: store, newID: id.NewID}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe feeds one event through the state machine. Only the flash boundary
// kinds change state; everything else passes through untouched. A completed
// pair is appended before Observe returns.
func (r *Recorder) Observe(ctx context.Context, evt event.Event) error {
	switch evt.Kind {
	case event.KindFlashStart:
		if r.pending != nil {
			log.Printf("flash start %s arrived while %s still awaited its end, tracking the new one", evt.EventID, r.pending.eventID)
		}
		r.pending = &pendingStart{
			eventID:  evt.EventID,
			player:   playerFor(evt),
			tLocalNS: evt.TLocalNS,
		}
		return nil

	case event.KindFlashEnd:
		if r.pending == nil {
			log.Printf("flash end %s without a pending start, ignoring", evt.EventID)
			return nil
		}
		start := r.pending
		r.pending = nil

		pairID, err := r.newID()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStorageAppendFailed, "generate sync pair id", err)
		}
		pair := storage.SyncPair{
			SessionID:     evt.SessionID,
			PairID:        pairID,
			Player:        start.player,
			Kind:          PairKindFlash,
			StartEventID:  start.eventID,
			EndEventID:    evt.EventID,
			TStartLocalNS: start.tLocalNS,
			TEndLocalNS:   evt.TLocalNS,
		}
		return r.store.AppendSyncPair(ctx, pair)
	}
	return nil
}

// Pending reports whether a flash start is still awaiting its end.
func (r *Recorder) Pending() bool {
	return r.pending != nil
}

// Seal discards a pending start at session end and reports whether one was
// dropped. An unmatched start never produces a pair.
func (r *Recorder) Seal() bool {
	if r.pending == nil {
		return false
	}
	if r.logDiscard {
		log.Printf("discarding unmatched flash start %s at session seal", r.pending.eventID)
	}
	r.pending = nil
	return true
}

// playerFor attributes a pair to a subject when the start event names one.
// System-raised flashes leave the player empty.
func playerFor(evt event.Event) string {
	if evt.Actor == event.ActorVP1 || evt.Actor == event.ActorVP2 {
		return evt.Actor
	}
	return ""
}
