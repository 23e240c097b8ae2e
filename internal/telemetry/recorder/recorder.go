// Package recorder wires the telemetry pipeline behind one Record call:
// enrichment, the durable journal, the round files, sync pairs, and marker
// mirroring, in that order. The journal is the only sink that can abort a
// record; the projections behind it are best effort and reconciled offline.
package recorder

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/marker"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/roundfile"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/syncpair"
)

// Journal append retry policy. Storage failures get a few quick attempts
// before they surface; validation failures never retry.
const (
	defaultAppendAttempts = 3
	defaultAppendBackoff  = 100 * time.Millisecond
)

// Store is the slice of the session store the recorder drives directly.
type Store interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	Close() error
}

// SnapshotFunc resolves the read-only session state an event is enriched
// against. Called once per Record, under the recorder's append lock.
type SnapshotFunc func() event.SessionSnapshot

// Recorder owns a session's single append path. Concurrent producers may
// call Record; appends serialize here, which is what gives Seq its arrival
// order.
type Recorder struct {
	sessionID string
	enricher  *event.Enricher
	store     Store
	snapshot  SnapshotFunc
	rounds    *roundfile.Writer
	pairs     *syncpair.Recorder
	mirror    *marker.Mirror
	tracer    trace.Tracer

	appendAttempts int
	appendBackoff  time.Duration

	mu     sync.Mutex
	sealed bool
}

// Option adjusts recorder behavior.
type Option func(*Recorder)

// WithSnapshot sets the session state source consulted on every record.
func WithSnapshot(fn SnapshotFunc) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.snapshot = fn
		}
	}
}

// WithRoundWriter projects every journaled event into per-round CSV files.
func WithRoundWriter(w *roundfile.Writer) Option {
	return func(r *Recorder) { r.rounds = w }
}

// WithSyncPairs derives fixation sync pairs from the journaled events.
func WithSyncPairs(p *syncpair.Recorder) Option {
	return func(r *Recorder) { r.pairs = p }
}

// WithMirror forwards journaled events to the tracker endpoints.
func WithMirror(m *marker.Mirror) Option {
	return func(r *Recorder) { r.mirror = m }
}

// WithAppendRetries overrides the journal retry policy.
func WithAppendRetries(attempts int, backoff time.Duration) Option {
	return func(r *Recorder) {
		if attempts > 0 {
			r.appendAttempts = attempts
		}
		if backoff >= 0 {
			r.appendBackoff = backoff
		}
	}
}

// New builds a recorder for one session. A nil clock gets a fresh identity
// clock; share one instance with the gaze sink so both sinks stamp the same
// monotonic timeline.
func New(sessionID string, clk *clock.IdentityClock, store Store, opts ...Option) *Recorder {
	if clk == nil {
		clk = clock.New()
	}
	r := &Recorder{
		sessionID:      sessionID,
		enricher:       event.NewEnricher(clk),
		store:          store,
		snapshot:       func() event.SessionSnapshot { return event.SessionSnapshot{} },
		tracer:         otel.Tracer("telemetry/recorder"),
		appendAttempts: defaultAppendAttempts,
		appendBackoff:  defaultAppendBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the session this recorder writes.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Record runs one raw event through the pipeline and returns the journaled
// event with its sequence assigned. Validation failures abort before any
// side effect; journal failures surface after bounded retries; round file,
// sync pair, and mirror failures are logged and never roll the journal back.
func (r *Recorder) Record(ctx context.Context, raw event.RawEvent) (event.Event, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.record")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		err := apperrors.New(apperrors.CodeSessionSealed, "session is sealed")
		span.RecordError(err)
		return event.Event{}, err
	}

	evt, err := r.enricher.Enrich(raw, r.snapshot())
	if err != nil {
		span.RecordError(err)
		return event.Event{}, err
	}
	evt.SessionID = r.sessionID
	span.SetAttributes(
		attribute.String("session.id", r.sessionID),
		attribute.String("event.kind", string(evt.Kind)),
	)

	stored, err := r.appendWithRetry(ctx, evt)
	if err != nil {
		span.RecordError(err)
		return event.Event{}, err
	}
	span.SetAttributes(attribute.Int64("event.seq", int64(stored.Seq)))

	if r.rounds != nil {
		if err := r.rounds.Append(stored); err != nil {
			log.Printf("round file append for %s: %v (journal holds the event)", stored.EventID, err)
		}
	}
	if r.pairs != nil {
		if err := r.pairs.Observe(ctx, stored); err != nil {
			log.Printf("sync pair append after %s: %v", stored.EventID, err)
		}
	}
	r.mirror.Mirror(stored)

	return stored, nil
}

// appendWithRetry drives the journal append. Only storage-class failures
// retry; anything else aborts immediately.
func (r *Recorder) appendWithRetry(ctx context.Context, evt event.Event) (event.Event, error) {
	var lastErr error
	for attempt := 1; attempt <= r.appendAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeouts.StorageAppend)
		stored, err := r.store.AppendEvent(attemptCtx, evt)
		cancel()
		if err == nil {
			return stored, nil
		}
		if !apperrors.IsStorage(err) {
			return event.Event{}, err
		}
		lastErr = err

		if attempt < r.appendAttempts {
			log.Printf("append %s attempt %d/%d: %v", evt.EventID, attempt, r.appendAttempts, err)
			select {
			case <-ctx.Done():
				return event.Event{}, ctx.Err()
			case <-time.After(r.appendBackoff):
			}
		}
	}
	return event.Event{}, lastErr
}

// Seal ends the session: queued markers are discarded and the senders stop,
// round files flush and close, the store closes, and a pending flash start
// is dropped. Sealing twice is a no-op. Gaze producers writing to the same
// store must stop before Seal closes it.
func (r *Recorder) Seal(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "recorder.seal")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}
	r.sealed = true

	r.mirror.Close()

	var firstErr error
	if r.rounds != nil {
		if err := r.rounds.Close(); err != nil {
			log.Printf("close round files for %s: %v", r.sessionID, err)
			firstErr = err
		}
	}
	if err := r.store.Close(); err != nil {
		log.Printf("close session store for %s: %v", r.sessionID, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if r.pairs != nil {
		span.SetAttributes(attribute.Bool("syncpair.discarded", r.pairs.Seal()))
	}

	if firstErr != nil {
		span.RecordError(firstErr)
	}
	return firstErr
}
