package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// GazeStore methods

// AppendGazeSample durably appends one gaze observation.
func (s *Store) AppendGazeSample(ctx context.Context, sample storage.GazeSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(sample.SessionID) == "" {
		return apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}
	if strings.TrimSpace(sample.Player) == "" {
		return apperrors.New(apperrors.CodeGazeSampleMalformed, "gaze sample player is required")
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now().UTC()
	}

	var conf sql.NullFloat64
	if sample.Conf != nil {
		conf = sql.NullFloat64{Float64: *sample.Conf, Valid: true}
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO gaze_samples (
		   session_id, player, x, y, conf, t_device_ns, t_host_ns, t_mono_ns,
		   t_utc_iso
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.SessionID,
		sample.Player,
		sample.X,
		sample.Y,
		conf,
		sample.TDeviceNS,
		sample.THostNS,
		sample.TMonoNS,
		toISO(sample.CreatedAt),
	); err != nil {
		return classifyAppendError("insert gaze sample", err)
	}
	return nil
}

// CountGazeSamples returns how many samples a session holds.
func (s *Store) CountGazeSamples(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}

	var count int
	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM gaze_samples WHERE session_id = ?",
		sessionID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "count gaze samples", err)
	}
	return count, nil
}
