package simulate

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/recording"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/roundfile"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage/sqlite"
)

// controlServer fakes the tracker's recording REST surface.
type controlServer struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (s *controlServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.URL.Path {
		case "/recording:status":
			fmt.Fprint(w, `{"active":false}`)
		case "/recording:start":
			s.starts++
			fmt.Fprint(w, `{}`)
		case "/recording:stop":
			s.stops++
			fmt.Fprint(w, `{}`)
		case "/time":
			fmt.Fprintf(w, `{"unix_time_ns":%d}`, time.Now().UnixNano())
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *controlServer) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return parsed.Host
}

func reopenStore(t *testing.T, dataDir, sessionID string) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(storage.DatabasePath(dataDir, sessionID))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.Rounds != 2 {
		t.Fatalf("expected 2 rounds by default, got %d", cfg.Rounds)
	}
	if cfg.StepDelay != 50*time.Millisecond {
		t.Fatalf("expected 50ms step delay, got %v", cfg.StepDelay)
	}
	if cfg.Gaze || cfg.Record {
		t.Fatal("gaze and recording control should be opt-in")
	}
}

func TestBuildScriptShape(t *testing.T) {
	steps := buildScript(2)

	if len(steps) != 19 {
		t.Fatalf("expected 19 steps for two rounds, got %d", len(steps))
	}
	if steps[0].raw.Kind != event.KindStartClick {
		t.Fatalf("expected start click first, got %s", steps[0].raw.Kind)
	}

	var flashStarts, flashEnds int
	for _, st := range steps {
		switch st.raw.Kind {
		case event.KindFlashStart:
			flashStarts++
		case event.KindFlashEnd:
			flashEnds++
		}
	}
	if flashStarts != 1 || flashEnds != 1 {
		t.Fatalf("expected one flash pair, got %d starts and %d ends", flashStarts, flashEnds)
	}

	// Signaling alternates between the two subjects round by round.
	var signalers []string
	for _, st := range steps {
		if st.raw.Kind == event.KindSignal {
			signalers = append(signalers, st.raw.Actor)
		}
	}
	if len(signalers) != 2 || signalers[0] != event.ActorVP1 || signalers[1] != event.ActorVP2 {
		t.Fatalf("expected alternating signalers, got %v", signalers)
	}
}

func TestRunReplaysScriptedSession(t *testing.T) {
	dataDir := t.TempDir()
	cfg := Config{
		DataDir: dataDir,
		Session: "sim-test",
		Rounds:  2,
		Verbose: true,
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	store := reopenStore(t, dataDir, "sim-test")
	ctx := context.Background()

	latest, err := store.GetLatestEventSeq(ctx, "sim-test")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 19 {
		t.Fatalf("expected 19 journal events, got %d", latest)
	}

	pairs, err := store.ListSyncPairs(ctx, "sim-test")
	if err != nil {
		t.Fatalf("list pairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one fixation pair, got %d", len(pairs))
	}
	if pairs[0].Kind != "fix.flash" {
		t.Fatalf("unexpected pair kind %q", pairs[0].Kind)
	}

	sessionDir := storage.SessionDir(dataDir, "sim-test")
	rounds, err := roundfile.ListRounds(sessionDir)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected round files 0 and 1, got %v", rounds)
	}
	rows, err := roundfile.ReadRows(rounds[0])
	if err != nil {
		t.Fatalf("read round 0: %v", err)
	}
	// Pre-round block plus the first scripted round share round file 0.
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows in round 0, got %d", len(rows))
	}

	text := out.String()
	if !strings.Contains(text, "replaying 2 rounds") {
		t.Fatalf("expected replay banner, got %q", text)
	}
	if !strings.Contains(text, "seq 1 ui.start_click VP1") {
		t.Fatalf("expected verbose step line, got %q", text)
	}
	if !strings.Contains(text, "recorded 19 events, 1 sync pairs") {
		t.Fatalf("expected summary line, got %q", text)
	}
	if !strings.Contains(text, "pre-round: 6 events") {
		t.Fatalf("expected pre-round count, got %q", text)
	}
}

func TestRunWithDummyGazeProducesSamples(t *testing.T) {
	dataDir := t.TempDir()
	cfg := Config{
		DataDir:   dataDir,
		Session:   "sim-gaze",
		Rounds:    1,
		Gaze:      true,
		Seed:      7,
		StepDelay: 20 * time.Millisecond,
	}

	if err := Run(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	store := reopenStore(t, dataDir, "sim-gaze")
	samples, err := store.CountGazeSamples(context.Background(), "sim-gaze")
	if err != nil {
		t.Fatalf("count gaze samples: %v", err)
	}
	if samples == 0 {
		t.Fatal("expected dummy gaze samples to be persisted")
	}
}

func TestRunDrivesRecordingControl(t *testing.T) {
	control := &controlServer{}
	server := httptest.NewServer(control.handler())
	defer server.Close()

	dataDir := t.TempDir()
	cfg := Config{
		DataDir:   dataDir,
		Session:   "sim-rec",
		Rounds:    1,
		Record:    true,
		TrackerP1: hostOf(t, server.URL),
	}

	if err := Run(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	starts, stops := control.counts()
	if starts != 1 || stops != 1 {
		t.Fatalf("expected one start and one stop, got %d and %d", starts, stops)
	}

	entries, err := recording.ReadEntries(recording.JournalPath(storage.SessionDir(dataDir, "sim-rec")))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty journal for a reachable tracker, got %v", entries)
	}
}

func TestRunJournalsUnreachableRecordingControl(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	dead := hostOf(t, server.URL)
	server.Close()

	dataDir := t.TempDir()
	cfg := Config{
		DataDir:   dataDir,
		Session:   "sim-dead",
		Rounds:    1,
		Record:    true,
		TrackerP1: dead,
	}

	var errOut bytes.Buffer
	if err := Run(context.Background(), cfg, nil, &errOut); err != nil {
		t.Fatalf("run should tolerate an unreachable tracker, got %v", err)
	}

	entries, err := recording.ReadEntries(recording.JournalPath(storage.SessionDir(dataDir, "sim-dead")))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected journaled start and stop, got %v", entries)
	}
	if entries[0].Command != "recording:start" || entries[1].Command != "recording:stop" {
		t.Fatalf("unexpected journal commands: %v", entries)
	}
	if !strings.Contains(errOut.String(), "tracker connect") {
		t.Fatalf("expected connect failure to be reported, got %q", errOut.String())
	}
}
