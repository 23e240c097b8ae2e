package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedEvent(t *testing.T, store *Store, sessionID, eventID string, kind event.Kind, roundIdx int) event.Event {
	t.Helper()

	idx := roundIdx
	evt := event.Event{
		SessionID: sessionID,
		EventID:   eventID,
		Kind:      kind,
		Actor:     event.ActorSystem,
		Phase:     event.PhaseSignalWait,
		RoundIdx:  &idx,
		TLocalNS:  time.Now().UnixNano(),
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	appended, err := store.AppendEvent(context.Background(), evt)
	if err != nil {
		t.Fatalf("append event %s: %v", eventID, err)
	}
	return appended
}
