// Package roundfile writes the per-round CSV projection of the session
// journal. Each round gets its own file under the session directory; the
// canonical history stays in the SQLite store and the round files exist so
// experimenters can eyeball a single round without tooling.
package roundfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
)

// timeLayout matches the wall-clock format the SQLite store persists.
const timeLayout = time.RFC3339Nano

// header is the column order of every round file.
var header = []string{
	"seq",
	"event_id",
	"kind",
	"actor",
	"game_player",
	"player_role",
	"phase",
	"round_idx",
	"t_local_ns",
	"t_utc_iso",
	"payload",
}

// RoundPath returns the file path for one round under dir.
func RoundPath(dir string, round int) string {
	return filepath.Join(dir, fmt.Sprintf("round_%d.csv", round))
}

// Writer appends events to one CSV file per round. Appends are serialized;
// a round switch flushes and closes the previous file before the next opens.
type Writer struct {
	dir string

	mu     sync.Mutex
	sealed bool
	round  int
	file   *os.File
	csv    *csv.Writer
}

// New creates a writer rooted at dir, creating the directory if needed.
func New(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("round file directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "create round file directory", err)
	}
	return &Writer{dir: dir, round: -1}, nil
}

// Append writes one event row into the file of its round. Events without a
// round index land in round 0, which holds pre-round records.
func (w *Writer) Append(evt event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return apperrors.New(apperrors.CodeSessionSealed, "round files sealed")
	}

	round, _ := evt.Round()
	if w.file == nil || round != w.round {
		if err := w.switchRound(round); err != nil {
			return err
		}
	}

	if err := w.csv.Write(rowFor(evt)); err != nil {
		return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "write round row", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "flush round row", err)
	}
	return nil
}

// Close flushes and closes the open round file. Close is nil-safe and
// idempotent; appends after Close fail with a sealed error.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sealed = true
	return w.closeCurrent()
}

func (w *Writer) switchRound(round int) error {
	if err := w.closeCurrent(); err != nil {
		return err
	}

	path := RoundPath(w.dir, round)
	writeHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		writeHeader = false
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "open round file", err)
	}
	w.file = file
	w.csv = csv.NewWriter(file)
	w.round = round

	if writeHeader {
		if err := w.csv.Write(header); err != nil {
			return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "write round header", err)
		}
	}
	return nil
}

func (w *Writer) closeCurrent() error {
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	w.file = nil
	w.csv = nil
	if flushErr != nil {
		return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "flush round file", flushErr)
	}
	if closeErr != nil {
		return apperrors.Wrap(apperrors.CodeRoundFileWriteFailed, "close round file", closeErr)
	}
	return nil
}

func rowFor(evt event.Event) []string {
	gamePlayer := ""
	if evt.GamePlayer != 0 {
		gamePlayer = strconv.Itoa(evt.GamePlayer)
	}
	roundIdx := ""
	if evt.RoundIdx != nil {
		roundIdx = strconv.Itoa(*evt.RoundIdx)
	}
	utcISO := ""
	if !evt.Timestamp.IsZero() {
		utcISO = evt.Timestamp.UTC().Format(timeLayout)
	}
	return []string{
		strconv.FormatUint(evt.Seq, 10),
		evt.EventID,
		string(evt.Kind),
		evt.Actor,
		gamePlayer,
		evt.PlayerRole,
		evt.Phase,
		roundIdx,
		strconv.FormatInt(evt.TLocalNS, 10),
		utcISO,
		string(evt.PayloadJSON),
	}
}
