package timesync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

func deltaPair(player string, delta *int64) storage.SyncPair {
	return storage.SyncPair{
		SessionID: "sess-1",
		PairID:    "pair-" + player,
		Player:    player,
		Kind:      "fix.flash",
		DeltaNS:   delta,
	}
}

func int64Ref(v int64) *int64 { return &v }

func TestSummarizeBucketsByPlayer(t *testing.T) {
	pairs := []storage.SyncPair{
		deltaPair("p1", int64Ref(100)),
		deltaPair("p1", int64Ref(300)),
		deltaPair("p2", int64Ref(-50)),
		deltaPair("p1", nil),
	}

	players := Summarize(pairs)
	if len(players) != 2 {
		t.Fatalf("summarized %d players, want 2", len(players))
	}

	p1 := players["p1"]
	if p1.Count != 2 || p1.MeanNS != 200 || p1.MinNS != 100 || p1.MaxNS != 300 {
		t.Fatalf("p1 summary = %+v", p1)
	}
	p2 := players["p2"]
	if p2.Count != 1 || p2.MeanNS != -50 || p2.MinNS != -50 || p2.MaxNS != -50 {
		t.Fatalf("p2 summary = %+v", p2)
	}
}

func TestSummarizeEmptyPairs(t *testing.T) {
	if players := Summarize(nil); len(players) != 0 {
		t.Fatalf("summarized %d players from no pairs", len(players))
	}
}

func TestBuildReportStampsGeneration(t *testing.T) {
	before := time.Now().UTC()
	report := BuildReport("sess-9", []storage.SyncPair{deltaPair("p1", int64Ref(42))})

	generated, err := time.Parse(time.RFC3339Nano, report.GeneratedUTC)
	if err != nil {
		t.Fatalf("parse generated_utc %q: %v", report.GeneratedUTC, err)
	}
	if generated.Before(before.Add(-time.Second)) || generated.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("generated_utc %v outside test window", generated)
	}
	if report.SessionID != "sess-9" {
		t.Fatalf("session id = %q", report.SessionID)
	}
	if report.Players["p1"].Count != 1 {
		t.Fatalf("players = %+v", report.Players)
	}
}

func TestWriteReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "sync_report.json")

	want := Report{
		GeneratedUTC: "2026-03-14T10:00:00Z",
		SessionID:    "sess-1",
		Players: map[string]Summary{
			"p1": {Count: 3, MeanNS: 120.5, MinNS: 100, MaxNS: 150},
		},
	}
	if err := WriteReport(path, want); err != nil {
		t.Fatalf("write report: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var got Report
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.SessionID != want.SessionID || got.GeneratedUTC != want.GeneratedUTC {
		t.Fatalf("report header = %+v", got)
	}
	if got.Players["p1"] != want.Players["p1"] {
		t.Fatalf("player summary = %+v, want %+v", got.Players["p1"], want.Players["p1"])
	}
	if raw[len(raw)-1] != '\n' {
		t.Fatal("report missing trailing newline")
	}
}

func TestReportPath(t *testing.T) {
	if got := ReportPath(filepath.Join("data", "sess-1")); got != filepath.Join("data", "sess-1", "sync_report.json") {
		t.Fatalf("report path = %q", got)
	}
}
