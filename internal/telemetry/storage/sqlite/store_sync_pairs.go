package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// SyncPairStore methods

// AppendSyncPair durably appends one completed fixation pair.
func (s *Store) AppendSyncPair(ctx context.Context, pair storage.SyncPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(pair.SessionID) == "" {
		return apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}
	if strings.TrimSpace(pair.PairID) == "" {
		return apperrors.New(apperrors.CodeEventIDMissing, "pair id is required")
	}
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sync_pairs (
		   session_id, pair_id, player, kind, start_event_id, end_event_id,
		   t_start_local_ns, t_end_local_ns, t_host_ns, t_device_ns, delta_ns,
		   created_utc
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pair.SessionID,
		pair.PairID,
		toNullText(pair.Player),
		pair.Kind,
		pair.StartEventID,
		pair.EndEventID,
		pair.TStartLocalNS,
		pair.TEndLocalNS,
		toNullInt(pair.THostNS),
		toNullInt(pair.TDeviceNS),
		toNullInt(pair.DeltaNS),
		toISO(pair.CreatedAt),
	); err != nil {
		return classifyAppendError("insert sync pair", err)
	}
	return nil
}

// ListSyncPairs returns session pairs ordered by creation.
func (s *Store) ListSyncPairs(ctx context.Context, sessionID string) ([]storage.SyncPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT session_id, pair_id, player, kind, start_event_id, end_event_id,
		        t_start_local_ns, t_end_local_ns, t_host_ns, t_device_ns,
		        delta_ns, created_utc
		   FROM sync_pairs
		  WHERE session_id = ?
		  ORDER BY created_utc ASC, pair_id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "list sync pairs", err)
	}
	defer rows.Close()

	var pairs []storage.SyncPair
	for rows.Next() {
		var (
			pair       storage.SyncPair
			player     sql.NullString
			hostNS     sql.NullInt64
			deviceNS   sql.NullInt64
			deltaNS    sql.NullInt64
			createdUTC string
		)
		if err := rows.Scan(
			&pair.SessionID,
			&pair.PairID,
			&player,
			&pair.Kind,
			&pair.StartEventID,
			&pair.EndEventID,
			&pair.TStartLocalNS,
			&pair.TEndLocalNS,
			&hostNS,
			&deviceNS,
			&deltaNS,
			&createdUTC,
		); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "scan sync pair", err)
		}
		pair.Player = player.String
		pair.THostNS = fromNullInt(hostNS)
		pair.TDeviceNS = fromNullInt(deviceNS)
		pair.DeltaNS = fromNullInt(deltaNS)
		pair.CreatedAt = fromISO(createdUTC)
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "read sync pairs", err)
	}
	return pairs, nil
}
