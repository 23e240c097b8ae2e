// Package reconcile audits a session's round-file projection against the
// canonical journal. The journal in the session store is the source of
// truth; round files are best-effort projections that can fall behind when
// a disk write fails mid-session, so this command reports every event
// missing from its round file, every file row with no journal record, and
// every gap in the sequence numbering.
package reconcile

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/roundfile"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage/sqlite"
)

// listPageSize bounds one journal page while loading a session.
const listPageSize = 500

// Config holds reconcile command configuration.
type Config struct {
	DataDir string `env:"BLUFFING_EYES_DATA_DIR"           envDefault:"data"`
	Session string `env:"BLUFFING_EYES_SESSION"`
	Workers int64  `env:"BLUFFING_EYES_RECONCILE_WORKERS"  envDefault:"4"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "session data directory")
	fs.StringVar(&cfg.Session, "session", cfg.Session, "session identifier")
	fs.Int64Var(&cfg.Workers, "workers", cfg.Workers, "concurrent round file readers")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RoundSummary pairs one round's journal event count with its file row count.
type RoundSummary struct {
	Round  int
	Events int
	Rows   int
}

// Report collects everything the audit discovered about one session.
type Report struct {
	Rounds     []RoundSummary
	SeqGaps    []string
	Missing    []string
	Orphans    []string
	Unreadable []string
}

// Findings flattens the report into printable discrepancy lines.
func (r Report) Findings() []string {
	var all []string
	all = append(all, r.SeqGaps...)
	all = append(all, r.Unreadable...)
	all = append(all, r.Missing...)
	all = append(all, r.Orphans...)
	return all
}

// Run executes the reconcile command. It returns a non-nil error when the
// journal and the round files disagree, so the process exits non-zero.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Session == "" {
		return errors.New("session id is required")
	}

	dbPath := storage.DatabasePath(cfg.DataDir, cfg.Session)
	if _, err := os.Stat(dbPath); err != nil {
		return apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("session store %s", dbPath), err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := listAllEvents(ctx, store, cfg.Session)
	if err != nil {
		return err
	}
	files, err := roundfile.ListRounds(storage.SessionDir(cfg.DataDir, cfg.Session))
	if err != nil {
		return err
	}

	report := Audit(ctx, events, files, cfg.Workers)

	fmt.Fprintf(out, "session %s: %d events, %d round files\n", cfg.Session, len(events), len(files))
	for _, rs := range report.Rounds {
		fmt.Fprintf(out, "  round %d: %d journal events, %d file rows\n", rs.Round, rs.Events, rs.Rows)
	}

	findings := report.Findings()
	if len(findings) == 0 {
		fmt.Fprintln(out, "journal and round files agree")
		return nil
	}
	for _, finding := range findings {
		fmt.Fprintf(errOut, "  %s\n", finding)
	}
	return fmt.Errorf("found %d discrepancies between journal and round files", len(findings))
}

// Audit compares journal events against the round files on disk, reading
// the files concurrently with at most workers readers.
func Audit(ctx context.Context, events []event.Event, files map[int]string, workers int64) Report {
	if workers < 1 {
		workers = 1
	}

	var report Report

	if len(events) > 0 && events[0].Seq != 1 {
		report.SeqGaps = append(report.SeqGaps, fmt.Sprintf("journal starts at seq %d", events[0].Seq))
	}
	var prev uint64
	for _, evt := range events {
		if prev != 0 && evt.Seq != prev+1 {
			report.SeqGaps = append(report.SeqGaps, fmt.Sprintf("seq gap between %d and %d", prev, evt.Seq))
		}
		prev = evt.Seq
	}

	// Events without a round index land in the round 0 file, so the audit
	// groups them the same way.
	byRound := make(map[int][]event.Event)
	for _, evt := range events {
		round, _ := evt.Round()
		byRound[round] = append(byRound[round], evt)
	}
	journalIDs := make(map[string]bool, len(events))
	for _, evt := range events {
		journalIDs[evt.EventID] = true
	}

	seen := make(map[int]bool)
	var rounds []int
	for round := range byRound {
		if !seen[round] {
			seen[round] = true
			rounds = append(rounds, round)
		}
	}
	for round := range files {
		if !seen[round] {
			seen[round] = true
			rounds = append(rounds, round)
		}
	}
	sort.Ints(rounds)

	results := make([]roundResult, len(rounds))
	sem := semaphore.NewWeighted(workers)
	var wg sync.WaitGroup
	for i, round := range rounds {
		i, round := i, round
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = roundResult{
					summary:    RoundSummary{Round: round, Events: len(byRound[round])},
					unreadable: fmt.Sprintf("round %d: %v", round, err),
				}
				return
			}
			defer sem.Release(1)
			results[i] = auditRound(round, byRound[round], files[round], journalIDs)
		}()
	}
	wg.Wait()

	for _, res := range results {
		report.Rounds = append(report.Rounds, res.summary)
		report.Missing = append(report.Missing, res.missing...)
		report.Orphans = append(report.Orphans, res.orphans...)
		if res.unreadable != "" {
			report.Unreadable = append(report.Unreadable, res.unreadable)
		}
	}
	return report
}

type roundResult struct {
	summary    RoundSummary
	missing    []string
	orphans    []string
	unreadable string
}

// auditRound checks one round's file against its journal slice. A missing
// event is judged against its own round's file; an orphan row is judged
// against the whole journal, so a row filed under the wrong round shows up
// as missing rather than as both.
func auditRound(round int, journal []event.Event, path string, journalIDs map[string]bool) roundResult {
	res := roundResult{summary: RoundSummary{Round: round, Events: len(journal)}}

	if path == "" {
		if len(journal) > 0 {
			res.missing = append(res.missing, fmt.Sprintf("round %d: no round file for %d journal events", round, len(journal)))
		}
		return res
	}

	rows, err := roundfile.ReadRows(path)
	if err != nil {
		res.unreadable = fmt.Sprintf("round %d: %v", round, err)
		return res
	}
	res.summary.Rows = len(rows)

	inFile := make(map[string]bool, len(rows))
	for _, row := range rows {
		inFile[row.EventID] = true
	}
	for _, evt := range journal {
		if !inFile[evt.EventID] {
			res.missing = append(res.missing, fmt.Sprintf("round %d: event %s (seq %d) missing from round file", round, evt.EventID, evt.Seq))
		}
	}
	for _, row := range rows {
		if !journalIDs[row.EventID] {
			res.orphans = append(res.orphans, fmt.Sprintf("round %d: row %s not in journal", round, row.EventID))
		}
	}
	return res
}

func listAllEvents(ctx context.Context, store storage.EventStore, sessionID string) ([]event.Event, error) {
	var events []event.Event
	var after uint64
	for {
		page, err := store.ListEvents(ctx, sessionID, after, listPageSize)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		if len(page) < listPageSize {
			return events, nil
		}
		after = page[len(page)-1].Seq
	}
}
