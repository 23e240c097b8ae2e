// Package syncreport builds the offline clock-alignment report for a
// recorded session from its stored sync pairs.
package syncreport

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage/sqlite"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/timesync"
)

// Config holds syncreport command configuration.
type Config struct {
	DataDir string `env:"BLUFFING_EYES_DATA_DIR" envDefault:"data"`
	Session string `env:"BLUFFING_EYES_SESSION"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "session data directory")
	fs.StringVar(&cfg.Session, "session", cfg.Session, "session identifier")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the syncreport command.
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

	pairs, err := store.ListSyncPairs(ctx, cfg.Session)
	if err != nil {
		return err
	}

	report := timesync.BuildReport(cfg.Session, pairs)
	path := timesync.ReportPath(storage.SessionDir(cfg.DataDir, cfg.Session))
	if err := timesync.WriteReport(path, report); err != nil {
		return err
	}

	fmt.Fprintf(out, "session %s: %d sync pairs\n", cfg.Session, len(pairs))
	players := make([]string, 0, len(report.Players))
	for player := range report.Players {
		players = append(players, player)
	}
	sort.Strings(players)
	for _, player := range players {
		s := report.Players[player]
		label := player
		if label == "" {
			label = "(unassigned)"
		}
		fmt.Fprintf(out, "  %s: %d measured, mean offset %.0f ns (min %d, max %d)\n",
			label, s.Count, s.MeanNS, s.MinNS, s.MaxNS)
	}
	fmt.Fprintf(out, "report written to %s\n", path)
	return nil
}
