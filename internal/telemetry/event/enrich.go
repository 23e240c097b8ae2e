package event

import (
	"strings"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
)

// SessionSnapshot is the read-only slice of session state an event is
// enriched against. The caller resolves it at emission time; enrichment
// never reaches into live game state.
type SessionSnapshot struct {
	// Actor names who raised the event; empty when the caller cannot tell.
	Actor string
	// GamePlayer is the seat number (1 or 2); 0 when no player is involved.
	GamePlayer int
	// PlayerRole is the subject label of that seat for the current round.
	PlayerRole string
	// Phase is the current engine phase.
	Phase string
	// RoundIdx is the current 0-based round; nil before the first deal.
	RoundIdx *int
}

// Enricher stamps raw events with identity, timestamps, and session context.
type Enricher struct {
	ids  *clock.IdentityClock
	wall func() time.Time
}

// NewEnricher creates an enricher drawing ids and timestamps from ids.
func NewEnricher(ids *clock.IdentityClock) *Enricher {
	return &Enricher{ids: ids, wall: time.Now}
}

// WithWallClock overrides the wall-clock source. Tests use this to pin the
// audit timestamp.
func (e *Enricher) WithWallClock(wall func() time.Time) *Enricher {
	if wall != nil {
		e.wall = wall
	}
	return e
}

// Enrich validates raw, stamps a fresh event id and local timestamp, and
// fills context fields from snap. Context fields already present on raw are
// kept, so re-enriching an enriched record changes nothing but the identity
// stamp. Fields absent from both raw and snap stay absent.
//
// Each call consumes one identifier and one timestamp.
func (e *Enricher) Enrich(raw RawEvent, snap SessionSnapshot) (Event, error) {
	kind := Kind(strings.TrimSpace(string(raw.Kind)))
	if !kind.IsValid() {
		return Event{}, apperrors.New(apperrors.CodeEventKindMissing, "raw event kind is required")
	}

	evt := Event{
		EventID:     e.ids.NextID(),
		Kind:        kind,
		Actor:       raw.Actor,
		GamePlayer:  raw.GamePlayer,
		PlayerRole:  raw.PlayerRole,
		Phase:       raw.Phase,
		RoundIdx:    raw.RoundIdx,
		TLocalNS:    e.ids.NowNS(),
		Timestamp:   e.wall().UTC(),
		PayloadJSON: raw.PayloadJSON,
	}

	if evt.Actor == "" {
		evt.Actor = snap.Actor
	}
	if evt.GamePlayer == 0 {
		evt.GamePlayer = snap.GamePlayer
	}
	if evt.PlayerRole == "" {
		evt.PlayerRole = snap.PlayerRole
	}
	if evt.Phase == "" {
		evt.Phase = snap.Phase
	}
	if evt.RoundIdx == nil && snap.RoundIdx != nil {
		idx := *snap.RoundIdx
		evt.RoundIdx = &idx
	}

	return evt, nil
}
