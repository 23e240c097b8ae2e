package timesync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// ReportFilename is the sync report's name inside a session directory.
const ReportFilename = "sync_report.json"

// ReportPath returns the report location for a session directory.
func ReportPath(dir string) string {
	return filepath.Join(dir, ReportFilename)
}

// Summary aggregates the device-minus-host deltas of one player's pairs.
type Summary struct {
	Count  int     `json:"count"`
	MeanNS float64 `json:"mean_ns"`
	MinNS  int64   `json:"min_ns"`
	MaxNS  int64   `json:"max_ns"`
}

// Report is the offline sync summary written next to the session store.
type Report struct {
	GeneratedUTC string             `json:"generated_utc"`
	SessionID    string             `json:"session_id"`
	Players      map[string]Summary `json:"players"`
}

// Summarize buckets stored sync pairs by player. Pairs without a device
// measurement carry no delta and are skipped.
func Summarize(pairs []storage.SyncPair) map[string]Summary {
	players := make(map[string]Summary)
	for _, pair := range pairs {
		if pair.DeltaNS == nil {
			continue
		}
		delta := *pair.DeltaNS

		s, seen := players[pair.Player]
		if !seen {
			s = Summary{MinNS: delta, MaxNS: delta}
		}
		s.Count++
		s.MeanNS += float64(delta)
		if delta < s.MinNS {
			s.MinNS = delta
		}
		if delta > s.MaxNS {
			s.MaxNS = delta
		}
		players[pair.Player] = s
	}

	for player, s := range players {
		s.MeanNS /= float64(s.Count)
		players[player] = s
	}
	return players
}

// BuildReport assembles a report from a session's stored pairs.
func BuildReport(sessionID string, pairs []storage.SyncPair) Report {
	return Report{
		GeneratedUTC: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:    sessionID,
		Players:      Summarize(pairs),
	}
}

// WriteReport writes the report as indented JSON, creating parent
// directories as needed.
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeReportWriteFailed, "encode sync report", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.CodeReportWriteFailed, "create report directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeReportWriteFailed, "write sync report", err)
	}
	return nil
}
