package event

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
)

func testEnricher() *Enricher {
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return NewEnricher(clock.New()).WithWallClock(func() time.Time { return fixed })
}

func intPtr(v int) *int { return &v }

func TestEnrichFillsContextFromSnapshot(t *testing.T) {
	e := testEnricher()

	snap := SessionSnapshot{
		Actor:      ActorVP1,
		GamePlayer: 1,
		PlayerRole: "VP1",
		Phase:      PhaseSignalWait,
		RoundIdx:   intPtr(3),
	}
	evt, err := e.Enrich(RawEvent{Kind: KindSignal}, snap)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if evt.EventID == "" {
		t.Fatal("expected non-empty event id")
	}
	if evt.Kind != KindSignal {
		t.Fatalf("expected kind %q, got %q", KindSignal, evt.Kind)
	}
	if evt.Actor != ActorVP1 {
		t.Fatalf("expected actor %q, got %q", ActorVP1, evt.Actor)
	}
	if evt.GamePlayer != 1 {
		t.Fatalf("expected game player 1, got %d", evt.GamePlayer)
	}
	if evt.PlayerRole != "VP1" {
		t.Fatalf("expected player role VP1, got %q", evt.PlayerRole)
	}
	if evt.Phase != PhaseSignalWait {
		t.Fatalf("expected phase %q, got %q", PhaseSignalWait, evt.Phase)
	}
	if evt.RoundIdx == nil || *evt.RoundIdx != 3 {
		t.Fatalf("expected round 3, got %v", evt.RoundIdx)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("expected non-zero wall timestamp")
	}
}

func TestEnrichRequiresKind(t *testing.T) {
	e := testEnricher()

	_, err := e.Enrich(RawEvent{}, SessionSnapshot{})
	if err == nil {
		t.Fatal("expected error for missing kind")
	}
	if !errors.Is(err, apperrors.New(apperrors.CodeEventKindMissing, "")) {
		t.Fatalf("expected event kind missing code, got %v", err)
	}
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation class, got %v", apperrors.ClassOf(err))
	}
}

func TestEnrichNeverFabricatesAbsentFields(t *testing.T) {
	e := testEnricher()

	evt, err := e.Enrich(RawEvent{Kind: KindPhaseChange}, SessionSnapshot{Phase: PhaseDealing})
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if evt.Actor != "" {
		t.Fatalf("expected absent actor to stay absent, got %q", evt.Actor)
	}
	if evt.GamePlayer != 0 {
		t.Fatalf("expected absent game player to stay absent, got %d", evt.GamePlayer)
	}
	if evt.PlayerRole != "" {
		t.Fatalf("expected absent player role to stay absent, got %q", evt.PlayerRole)
	}
	if evt.RoundIdx != nil {
		t.Fatalf("expected absent round to stay absent, got %v", *evt.RoundIdx)
	}
	if evt.Phase != PhaseDealing {
		t.Fatalf("expected phase from snapshot, got %q", evt.Phase)
	}
}

func TestEnrichKeepsPresetFields(t *testing.T) {
	e := testEnricher()

	raw := RawEvent{
		Kind:       KindCall,
		Actor:      ActorVP2,
		GamePlayer: 2,
		PlayerRole: "VP2",
		Phase:      PhaseCallWait,
		RoundIdx:   intPtr(1),
	}
	snap := SessionSnapshot{
		Actor:      ActorVP1,
		GamePlayer: 1,
		PlayerRole: "VP1",
		Phase:      PhaseDealing,
		RoundIdx:   intPtr(9),
	}
	evt, err := e.Enrich(raw, snap)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if evt.Actor != ActorVP2 || evt.GamePlayer != 2 || evt.PlayerRole != "VP2" {
		t.Fatalf("expected preset identity kept, got %q/%d/%q", evt.Actor, evt.GamePlayer, evt.PlayerRole)
	}
	if evt.Phase != PhaseCallWait {
		t.Fatalf("expected preset phase kept, got %q", evt.Phase)
	}
	if evt.RoundIdx == nil || *evt.RoundIdx != 1 {
		t.Fatalf("expected preset round kept, got %v", evt.RoundIdx)
	}
}

func TestEnrichIdempotentOnContent(t *testing.T) {
	e := testEnricher()

	snap := SessionSnapshot{
		Actor:      ActorSystem,
		Phase:      PhaseRevealScore,
		RoundIdx:   intPtr(4),
		PlayerRole: "",
	}
	first, err := e.Enrich(RawEvent{Kind: KindRevealAndScore, PayloadJSON: []byte(`{"winner":"VP1"}`)}, snap)
	if err != nil {
		t.Fatalf("first enrich: %v", err)
	}

	again := RawEvent{
		Kind:        first.Kind,
		Actor:       first.Actor,
		GamePlayer:  first.GamePlayer,
		PlayerRole:  first.PlayerRole,
		Phase:       first.Phase,
		RoundIdx:    first.RoundIdx,
		PayloadJSON: first.PayloadJSON,
	}
	second, err := e.Enrich(again, snap)
	if err != nil {
		t.Fatalf("second enrich: %v", err)
	}

	if second.EventID == first.EventID {
		t.Fatal("expected fresh event id on re-enrichment")
	}
	if second.Actor != first.Actor ||
		second.GamePlayer != first.GamePlayer ||
		second.PlayerRole != first.PlayerRole ||
		second.Phase != first.Phase ||
		string(second.PayloadJSON) != string(first.PayloadJSON) {
		t.Fatal("expected content fields unchanged on re-enrichment")
	}
	if *second.RoundIdx != *first.RoundIdx {
		t.Fatalf("expected round unchanged, got %d then %d", *first.RoundIdx, *second.RoundIdx)
	}
}

func TestEnrichConsumesOneIDPerCall(t *testing.T) {
	ids := clock.New()
	e := NewEnricher(ids)

	for i := 0; i < 5; i++ {
		if _, err := e.Enrich(RawEvent{Kind: KindClick}, SessionSnapshot{}); err != nil {
			t.Fatalf("enrich %d: %v", i, err)
		}
	}
	if got := ids.Issued(); got != 5 {
		t.Fatalf("expected 5 ids issued, got %d", got)
	}
}

func TestEnrichTimestampsNonDecreasing(t *testing.T) {
	e := NewEnricher(clock.New())

	var prev int64
	for i := 0; i < 100; i++ {
		evt, err := e.Enrich(RawEvent{Kind: KindClick}, SessionSnapshot{})
		if err != nil {
			t.Fatalf("enrich %d: %v", i, err)
		}
		if evt.TLocalNS < prev {
			t.Fatalf("local timestamp decreased: %d after %d", evt.TLocalNS, prev)
		}
		prev = evt.TLocalNS
	}
}
