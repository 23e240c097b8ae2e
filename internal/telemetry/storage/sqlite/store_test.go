package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
	if _, err := Open("   "); err == nil {
		t.Fatal("expected blank path error")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.sqlite")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open new store: %v", err)
	}
	seedEvent(t, first, "sess-reopen", "ev-000001", event.KindClick, 0)
	if err := first.Close(); err != nil {
		t.Fatalf("close first store: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() {
		if err := second.Close(); err != nil {
			t.Fatalf("close second store: %v", err)
		}
	}()

	seq, err := second.GetLatestEventSeq(context.Background(), "sess-reopen")
	if err != nil {
		t.Fatalf("latest seq after reopen: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected seq 1 after reopen, got %d", seq)
	}
}

func TestCloseNilStore(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("nil store close: %v", err)
	}
	if err := (&Store{}).Close(); err != nil {
		t.Fatalf("zero store close: %v", err)
	}
	if store.DB() != nil {
		t.Fatal("expected nil DB from nil store")
	}
}

func TestISOHelpersRoundTrip(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+4", 4*60*60)
	local := time.Date(2026, 3, 14, 13, 30, 0, 250_000_000, loc)

	encoded := toISO(local)
	decoded := fromISO(encoded)
	if !decoded.Equal(local) {
		t.Fatalf("round trip mismatch: %v != %v", decoded, local)
	}
	if decoded.Location() != time.UTC {
		t.Fatalf("expected UTC result, got %v", decoded.Location())
	}

	if got := fromISO("not-a-timestamp"); !got.IsZero() {
		t.Fatalf("expected zero time for garbage input, got %v", got)
	}
}

func TestNullIntHelpers(t *testing.T) {
	t.Parallel()

	if got := toNullInt(nil); got.Valid {
		t.Fatalf("expected invalid null int, got %+v", got)
	}
	v := int64(-42)
	got := toNullInt(&v)
	if !got.Valid || got.Int64 != -42 {
		t.Fatalf("expected valid -42, got %+v", got)
	}

	if back := fromNullInt(sql.NullInt64{}); back != nil {
		t.Fatalf("expected nil for invalid column, got %v", back)
	}
	back := fromNullInt(sql.NullInt64{Int64: 7, Valid: true})
	if back == nil || *back != 7 {
		t.Fatalf("expected 7, got %v", back)
	}
}
