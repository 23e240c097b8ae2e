// Package simulate drives the whole recording pipeline with a canned
// session script. It stands in for the tabletop UI and game engine: it
// opens a session store, replays a scripted bluffing session through the
// recorder, optionally feeds synthetic gaze samples and drives tracker
// recording control, seals the session, and prints a summary read back
// from disk.
package simulate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/clock"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/gaze"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/marker"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/recorder"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/recording"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/roundfile"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage/sqlite"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/syncpair"
)

// Config holds simulate command configuration.
type Config struct {
	DataDir   string        `env:"BLUFFING_EYES_DATA_DIR"             envDefault:"data"`
	Session   string        `env:"BLUFFING_EYES_SESSION"`
	TrackerP1 string        `env:"BLUFFING_EYES_TRACKER_P1"`
	TrackerP2 string        `env:"BLUFFING_EYES_TRACKER_P2"`
	Rounds    int           `env:"BLUFFING_EYES_SIMULATE_ROUNDS"      envDefault:"2"`
	Seed      int64         `env:"BLUFFING_EYES_SIMULATE_SEED"`
	Gaze      bool          `env:"BLUFFING_EYES_SIMULATE_GAZE"`
	Record    bool          `env:"BLUFFING_EYES_SIMULATE_RECORD"`
	StepDelay time.Duration `env:"BLUFFING_EYES_SIMULATE_STEP_DELAY"  envDefault:"50ms"`
	Verbose   bool          `env:"BLUFFING_EYES_SIMULATE_VERBOSE"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "session data directory")
	fs.StringVar(&cfg.Session, "session", cfg.Session, "session identifier (default: generated)")
	fs.StringVar(&cfg.TrackerP1, "tracker-p1", cfg.TrackerP1, "player one tracker endpoint (host:port)")
	fs.StringVar(&cfg.TrackerP2, "tracker-p2", cfg.TrackerP2, "player two tracker endpoint (host:port)")
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "number of scripted rounds")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "gaze walk seed (0 = random)")
	fs.BoolVar(&cfg.Gaze, "gaze", cfg.Gaze, "feed synthetic gaze samples during the script")
	fs.BoolVar(&cfg.Record, "record", cfg.Record, "drive recording start/stop on configured trackers")
	fs.DurationVar(&cfg.StepDelay, "step-delay", cfg.StepDelay, "pause between script steps")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "print each recorded event")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// step is one scripted emission. Phase and round updates apply to the shared
// session snapshot before the event records, mirroring how the engine
// advances state first and then emits.
type step struct {
	phase string
	round *int
	raw   event.RawEvent
}

// scriptState is the mutable snapshot source the recorder reads while the
// script advances.
type scriptState struct {
	phase string
	round *int
}

// buildScript lays out one session: start click, the fixation flash block,
// then the signal/call/reveal cycle per round, closed by a finished phase.
func buildScript(rounds int) []step {
	steps := []step{
		{phase: event.PhaseWaitingStart, raw: event.RawEvent{
			Kind: event.KindStartClick, Actor: event.ActorVP1, GamePlayer: 1,
			PayloadJSON: []byte(`{"button":"start"}`),
		}},
	}
	for _, kind := range []event.Kind{
		event.KindFixationStart,
		event.KindFlashStart,
		event.KindFlashBeep,
		event.KindFlashEnd,
		event.KindFixationEnd,
	} {
		steps = append(steps, step{phase: event.PhaseDealing, raw: event.RawEvent{
			Kind: kind, Actor: event.ActorSystem,
		}})
	}

	for round := 1; round <= rounds; round++ {
		signaler, caller := event.ActorVP1, event.ActorVP2
		signalSeat, callSeat := 1, 2
		if round%2 == 0 {
			signaler, caller = caller, signaler
			signalSeat, callSeat = callSeat, signalSeat
		}
		call := "TRUTH"
		if round%2 == 1 {
			call = "BLUFF"
		}
		idx := round - 1

		steps = append(steps,
			step{phase: event.PhaseSignalWait, round: &idx, raw: event.RawEvent{
				Kind: event.KindPhaseChange, Actor: event.ActorSystem,
				PayloadJSON: []byte(fmt.Sprintf(`{"phase":%q}`, event.PhaseSignalWait)),
			}},
			step{raw: event.RawEvent{
				Kind: event.KindSignal, Actor: signaler, GamePlayer: signalSeat, PlayerRole: "SPIELER",
				PayloadJSON: []byte(fmt.Sprintf(`{"level":%d}`, 1+round%3)),
			}},
			step{phase: event.PhaseCallWait, raw: event.RawEvent{
				Kind: event.KindPhaseChange, Actor: event.ActorSystem,
				PayloadJSON: []byte(fmt.Sprintf(`{"phase":%q}`, event.PhaseCallWait)),
			}},
			step{raw: event.RawEvent{
				Kind: event.KindCall, Actor: caller, GamePlayer: callSeat, PlayerRole: "BEOBACHTER",
				PayloadJSON: []byte(fmt.Sprintf(`{"call":%q}`, call)),
			}},
			step{phase: event.PhaseRevealScore, raw: event.RawEvent{
				Kind: event.KindRevealAndScore, Actor: event.ActorSystem,
			}},
			step{phase: event.PhaseRoundDone, raw: event.RawEvent{
				Kind: event.KindNextRoundClick, Actor: caller, GamePlayer: callSeat,
			}},
		)
	}

	steps = append(steps, step{phase: event.PhaseFinished, raw: event.RawEvent{
		Kind: event.KindPhaseChange, Actor: event.ActorSystem,
		PayloadJSON: []byte(fmt.Sprintf(`{"phase":%q}`, event.PhaseFinished)),
	}})
	return steps
}

// Run executes the simulate command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}

	sessionID := strings.TrimSpace(cfg.Session)
	if sessionID == "" {
		sessionID = "sim-" + time.Now().UTC().Format("20060102-150405")
	}

	type tracker struct {
		label    string
		endpoint marker.Endpoint
	}
	var trackers []tracker
	for _, spec := range []struct{ label, raw string }{
		{"p1", cfg.TrackerP1},
		{"p2", cfg.TrackerP2},
	} {
		if strings.TrimSpace(spec.raw) == "" {
			continue
		}
		endpoint, err := marker.ParseEndpoint(spec.raw)
		if err != nil {
			return err
		}
		trackers = append(trackers, tracker{spec.label, endpoint})
	}

	sessionDir := storage.SessionDir(cfg.DataDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	dbPath := storage.DatabasePath(cfg.DataDir, sessionID)
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := roundfile.New(sessionDir)
	if err != nil {
		return err
	}

	journal := recording.NewJournal(recording.JournalPath(sessionDir))
	var markerClients []*marker.Client
	var controls []*recording.Client
	for _, tr := range trackers {
		markerClients = append(markerClients, marker.NewClient(tr.endpoint))
		controls = append(controls, recording.NewClient(tr.endpoint, recording.WithJournal(journal)))
	}
	mirror := marker.NewMirror(markerClients...)

	var state scriptState
	clk := clock.New()
	rec := recorder.New(sessionID, clk, store,
		recorder.WithSnapshot(func() event.SessionSnapshot {
			return event.SessionSnapshot{Phase: state.phase, RoundIdx: state.round}
		}),
		recorder.WithRoundWriter(writer),
		recorder.WithSyncPairs(syncpair.NewRecorder(store, syncpair.WithDiscardLogging())),
		recorder.WithMirror(mirror),
	)

	var runErr error
	keep := func(err error) {
		if runErr == nil && err != nil {
			runErr = err
		}
	}

	if cfg.Record {
		for i, control := range controls {
			if err := control.Connect(ctx); err != nil {
				fmt.Fprintf(errOut, "%s tracker connect: %v\n", trackers[i].label, err)
			}
			if err := control.StartRecording(ctx); err != nil {
				fmt.Fprintf(errOut, "%s start recording: %v\n", trackers[i].label, err)
			}
		}
	}

	gazeCtx, stopGaze := context.WithCancel(ctx)
	defer stopGaze()
	var producers errgroup.Group
	if cfg.Gaze {
		sink := gaze.NewSink(sessionID, store, clk)
		for i, player := range []string{"p1", "p2"} {
			seed := cfg.Seed
			if seed != 0 {
				// Distinct fixed seeds keep the two walks reproducible but
				// not identical.
				seed += int64(i)
			}
			producer, err := gaze.NewDummyProducer(player, sink, seed)
			if err != nil {
				return err
			}
			producers.Go(func() error {
				if err := producer.Run(gazeCtx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	fmt.Fprintf(out, "session %s: replaying %d rounds\n", sessionID, cfg.Rounds)
	keep(runScript(ctx, rec, &state, buildScript(cfg.Rounds), cfg, out))

	stopGaze()
	if err := producers.Wait(); err != nil {
		fmt.Fprintf(errOut, "gaze producer: %v\n", err)
		keep(err)
	}

	// Teardown runs with a fresh deadline so an interrupted script still
	// stops the trackers and seals the session.
	teardownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if cfg.Record {
		for i, control := range controls {
			if err := control.StopRecording(teardownCtx); err != nil {
				fmt.Fprintf(errOut, "%s stop recording: %v\n", trackers[i].label, err)
			}
		}
	}
	keep(rec.Seal(teardownCtx))

	for endpoint, dropped := range mirror.Drops() {
		if dropped > 0 {
			fmt.Fprintf(errOut, "dropped %d markers for %s\n", dropped, endpoint)
		}
	}

	// Seal closed the store handle; the summary reads the session back the
	// way the offline tools do.
	keep(printSummary(teardownCtx, dbPath, sessionID, sessionDir, out))
	return runErr
}

// runScript replays the steps through the recorder, advancing the shared
// snapshot state as it goes.
func runScript(ctx context.Context, rec *recorder.Recorder, state *scriptState, steps []step, cfg Config, out io.Writer) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.phase != "" {
			state.phase = st.phase
		}
		if st.round != nil {
			state.round = st.round
		}

		stored, err := rec.Record(ctx, st.raw)
		if err != nil {
			return fmt.Errorf("script step %d (%s): %w", i+1, st.raw.Kind, err)
		}
		if cfg.Verbose {
			fmt.Fprintf(out, "  seq %d %s %s\n", stored.Seq, stored.Kind, stored.Actor)
		}

		if cfg.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.StepDelay):
			}
		}
	}
	return nil
}

// printSummary reopens the sealed session and reports what it holds.
func printSummary(ctx context.Context, dbPath, sessionID, sessionDir string, out io.Writer) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	latest, err := store.GetLatestEventSeq(ctx, sessionID)
	if err != nil {
		return err
	}
	counts, err := store.CountEventsByRound(ctx, sessionID)
	if err != nil {
		return err
	}
	pairs, err := store.ListSyncPairs(ctx, sessionID)
	if err != nil {
		return err
	}
	samples, err := store.CountGazeSamples(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "recorded %d events, %d sync pairs, %d gaze samples\n", latest, len(pairs), samples)
	for _, rc := range counts {
		if rc.RoundIdx < 0 {
			fmt.Fprintf(out, "  pre-round: %d events\n", rc.Events)
			continue
		}
		fmt.Fprintf(out, "  round %d: %d events\n", rc.RoundIdx, rc.Events)
	}
	fmt.Fprintf(out, "session data in %s\n", sessionDir)
	return nil
}
