// Package storage defines the persistence boundary for the session journal.
//
// The session log is the durable source of truth: one record per event, plus
// one record per sync pair and per gaze sample, all partitioned by session
// identifier. Implementations must make AppendEvent durable before returning.
package storage

import (
	"context"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such record" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrDuplicateEventID indicates an append reused an event id already journaled
// for the session. Event ids are assigned once at enrichment and never reused,
// so a duplicate is a producer bug, not a transient storage failure.
var ErrDuplicateEventID = apperrors.New(apperrors.CodeDuplicateEventID, "event id already journaled for session")

// SyncPair couples a fixation flash start with its matching end so the local
// clock can later be aligned with the eye tracker's clock. Device-side fields
// are nullable: a pair recorded without a reachable tracker still documents
// the local boundary timestamps.
type SyncPair struct {
	// SessionID is the session this pair belongs to.
	SessionID string
	// PairID uniquely identifies the pair within the session.
	PairID string
	// Player is the tracker unit the pair refers to ("p1", "p2"); empty when
	// the pair was recorded without a device association.
	Player string
	// Kind is the boundary kind shared by both halves (e.g. "fix.flash").
	Kind string
	// StartEventID references the flash_start event in the journal.
	StartEventID string
	// EndEventID references the flash_end event in the journal.
	EndEventID string
	// TStartLocalNS is the local monotonic timestamp of the start event.
	TStartLocalNS int64
	// TEndLocalNS is the local monotonic timestamp of the end event.
	TEndLocalNS int64
	// THostNS is the host wall time of the device-side marker, when measured.
	THostNS *int64
	// TDeviceNS is the device time of the device-side marker, when measured.
	TDeviceNS *int64
	// DeltaNS is TDeviceNS minus THostNS, when both are present.
	DeltaNS *int64
	// CreatedAt is the wall-clock creation time of the pair record.
	CreatedAt time.Time
}

// GazeSample is one timestamped gaze observation. Samples share the session
// scope with events but are otherwise independent of the event pipeline.
type GazeSample struct {
	// SessionID is the session this sample belongs to.
	SessionID string
	// Player is the tracker unit that produced the sample ("p1", "p2").
	Player string
	// X is the normalized horizontal gaze position (0..1).
	X float64
	// Y is the normalized vertical gaze position (0..1).
	Y float64
	// Conf is the tracker's confidence for the sample; nil when not reported.
	Conf *float64
	// TDeviceNS is the device-side timestamp of the sample.
	TDeviceNS int64
	// THostNS is the host wall time when the sample arrived.
	THostNS int64
	// TMonoNS is the local monotonic timestamp when the sample was written.
	TMonoNS int64
	// CreatedAt is the wall-clock write time, kept for audit only.
	CreatedAt time.Time
}

// RoundCount pairs a round index with the number of journal events in it.
type RoundCount struct {
	RoundIdx int
	Events   int
}

// EventStore owns the append-only event journal, ordered by arrival within a
// session. This is the canonical event history.
type EventStore interface {
	// AppendEvent durably appends an event and returns it with Seq assigned.
	// Arrival order, not TLocalNS order, defines Seq.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns session events ordered by sequence ascending.
	ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error)
	// GetLatestEventSeq returns the latest sequence for a session, 0 when the
	// journal is empty.
	GetLatestEventSeq(ctx context.Context, sessionID string) (uint64, error)
	// CountEventsByRound aggregates journal events per round index. Events
	// without a round are reported under round -1.
	CountEventsByRound(ctx context.Context, sessionID string) ([]RoundCount, error)
}

// SyncPairStore persists completed fixation sync pairs.
type SyncPairStore interface {
	// AppendSyncPair durably appends one completed pair.
	AppendSyncPair(ctx context.Context, pair SyncPair) error
	// ListSyncPairs returns session pairs ordered by creation.
	ListSyncPairs(ctx context.Context, sessionID string) ([]SyncPair, error)
}

// GazeStore persists gaze samples independent of the event journal.
type GazeStore interface {
	// AppendGazeSample durably appends one sample.
	AppendGazeSample(ctx context.Context, sample GazeSample) error
	// CountGazeSamples returns how many samples a session holds.
	CountGazeSamples(ctx context.Context, sessionID string) (int, error)
}

// SessionStore is the full persistence surface of one session database.
type SessionStore interface {
	EventStore
	SyncPairStore
	GazeStore

	// Close flushes and releases the underlying database handle.
	Close() error
}
