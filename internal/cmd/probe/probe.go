// Package probe checks the configured tracker endpoints before a session:
// recording state, device time, and the measured clock offset.
package probe

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/marker"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/recording"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/timesync"
)

// Config holds probe command configuration.
type Config struct {
	TrackerP1 string        `env:"BLUFFING_EYES_TRACKER_P1"`
	TrackerP2 string        `env:"BLUFFING_EYES_TRACKER_P2"`
	Spacing   time.Duration `env:"BLUFFING_EYES_PROBE_SPACING" envDefault:"500ms"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.TrackerP1, "tracker-p1", cfg.TrackerP1, "player one tracker endpoint (host:port)")
	fs.StringVar(&cfg.TrackerP2, "tracker-p2", cfg.TrackerP2, "player two tracker endpoint (host:port)")
	fs.DurationVar(&cfg.Spacing, "spacing", cfg.Spacing, "pause between clock offset probes")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Result is one endpoint's probe outcome.
type Result struct {
	Label    string
	Endpoint marker.Endpoint
	Err      error
	Active   bool
	OffsetNS int64
}

// Run executes the probe command. Each configured endpoint gets one status
// line; the command fails only when no endpoint answers at all.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	type target struct {
		label    string
		endpoint marker.Endpoint
	}
	var targets []target
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
		targets = append(targets, target{spec.label, endpoint})
	}
	if len(targets) == 0 {
		return errors.New("no tracker endpoints configured")
	}

	unreachable := 0
	for _, item := range targets {
		res := probeEndpoint(ctx, item.label, item.endpoint, cfg.Spacing)
		if res.Err != nil {
			unreachable++
			fmt.Fprintf(out, "%s %s: unreachable: %v\n", res.Label, res.Endpoint, res.Err)
			continue
		}
		state := "idle"
		if res.Active {
			state = "recording"
		}
		fmt.Fprintf(out, "%s %s: %s, device clock offset %+d ns\n", res.Label, res.Endpoint, state, res.OffsetNS)
	}
	if unreachable == len(targets) {
		return apperrors.New(apperrors.CodeEndpointUnreachable, "no tracker endpoint answered")
	}
	return nil
}

// probeEndpoint queries one tracker: recording status first, then a short
// offset measurement against its time endpoint.
func probeEndpoint(ctx context.Context, label string, endpoint marker.Endpoint, spacing time.Duration) Result {
	res := Result{Label: label, Endpoint: endpoint}

	client := recording.NewClient(endpoint)
	status, err := client.Status(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Active = status.Active

	estimator := timesync.NewEstimator(client, timesync.WithSpacing(spacing))
	offset, err := estimator.Refresh(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.OffsetNS = offset
	return res
}
