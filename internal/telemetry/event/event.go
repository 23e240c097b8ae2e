package event

import (
	"strings"
	"time"
)

// Kind identifies the category of a telemetry event.
type Kind string

// UI input events.
const (
	// KindStartClick records a player pressing the start button.
	KindStartClick Kind = "ui.start_click"
	// KindNextRoundClick records a player confirming the next round.
	KindNextRoundClick Kind = "ui.next_round_click"
	// KindClick records a generic UI interaction.
	KindClick Kind = "ui.click"
)

// Game progression events emitted by the engine.
const (
	// KindPhaseChange records a phase transition.
	KindPhaseChange Kind = "game.phase_change"
	// KindSignal records the signaling player committing a signal level.
	KindSignal Kind = "game.signal"
	// KindCall records the calling player committing a call.
	KindCall Kind = "game.call"
	// KindRevealCard records a single card being revealed.
	KindRevealCard Kind = "game.reveal_card"
	// KindRevealAndScore records the round resolution with both hands open.
	KindRevealAndScore Kind = "game.reveal_and_score"
)

// Fixation boundary events. These bracket the calibration flash and feed
// sync-pair construction.
const (
	// KindFlashStart records the onset of the fixation flash.
	KindFlashStart Kind = "fix.flash_start"
	// KindFlashEnd records the offset of the fixation flash.
	KindFlashEnd Kind = "fix.flash_end"
)

// Synchronization markers emitted around the fixation sequence.
const (
	// KindFixationStart records entering the fixation overlay.
	KindFixationStart Kind = "sync.fixation_start"
	// KindFlashBeep records the audible beep paired with the flash.
	KindFlashBeep Kind = "sync.flash_beep"
	// KindFixationEnd records leaving the fixation overlay.
	KindFixationEnd Kind = "sync.fixation_end"
)

// Actor labels. Player events carry the label of the seated subject; events
// raised by the engine itself carry the system label.
const (
	// ActorSystem marks events raised by the engine rather than a player.
	ActorSystem = "SYS"
	// ActorVP1 marks events attributed to test subject one.
	ActorVP1 = "VP1"
	// ActorVP2 marks events attributed to test subject two.
	ActorVP2 = "VP2"
)

// Session phases as reported by the game engine.
const (
	PhaseWaitingStart = "WAITING_START"
	PhaseDealing      = "DEALING"
	PhaseSignalWait   = "SIGNAL_WAIT"
	PhaseCallWait     = "CALL_WAIT"
	PhaseRevealScore  = "REVEAL_SCORE"
	PhaseRoundDone    = "ROUND_DONE"
	PhaseFinished     = "FINISHED"
)

// IsValid reports whether the kind is usable.
func (k Kind) IsValid() bool {
	return strings.TrimSpace(string(k)) != ""
}

// Critical reports whether the kind is a critical sync marker. Critical
// markers are mirrored without host time so the device clock stamps them.
func (k Kind) Critical() bool {
	return strings.HasPrefix(string(k), "fix.") || strings.HasPrefix(string(k), "sync.")
}

// Domain returns the dot-prefix of the kind (e.g., "ui", "game", "fix").
func (k Kind) Domain() string {
	for i, c := range k {
		if c == '.' {
			return string(k[:i])
		}
	}
	return string(k)
}

// RawEvent is the record the UI/game layer hands to the pipeline. Only Kind
// is required; context fields already present survive enrichment untouched.
type RawEvent struct {
	// Kind identifies the event category.
	Kind Kind
	// Actor names who raised the event when the caller already knows.
	Actor string
	// GamePlayer is the seat number (1 or 2) when a player raised the event.
	GamePlayer int
	// PlayerRole is the subject label of that seat for the current round.
	PlayerRole string
	// Phase is the engine phase when the caller already sampled it.
	Phase string
	// RoundIdx is the 0-based round when the caller already sampled it.
	RoundIdx *int
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// Event represents one immutable record in the session journal.
type Event struct {
	// SessionID is the session this event belongs to.
	SessionID string
	// Seq is the arrival sequence within the session (starts at 1).
	// Assigned by storage on append; concurrent producers may interleave,
	// so Seq order and TLocalNS order can differ.
	Seq uint64
	// EventID uniquely identifies the event within the session. Assigned
	// once at enrichment, never reused.
	EventID string
	// Kind identifies the event category.
	Kind Kind
	// Actor names who raised the event ("SYS", "VP1", "VP2").
	Actor string
	// GamePlayer is the seat number (1 or 2); 0 when no player is involved.
	GamePlayer int
	// PlayerRole is the subject label of the seat for the current round.
	PlayerRole string
	// Phase is the engine phase at enrichment time.
	Phase string
	// RoundIdx is the 0-based round index; nil before round context exists.
	RoundIdx *int
	// TLocalNS is the monotonic local timestamp assigned at enrichment.
	// Nanoseconds since an arbitrary process-fixed epoch; not wall time.
	TLocalNS int64
	// Timestamp is the wall-clock time at enrichment, kept for audit only.
	Timestamp time.Time
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// Round returns the round index and whether one is set.
func (e Event) Round() (int, bool) {
	if e.RoundIdx == nil {
		return 0, false
	}
	return *e.RoundIdx, true
}
