package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/storage"
)

// EventStore methods (append-only session journal)

// AppendEvent atomically appends an event and returns it with Seq assigned.
// The per-session sequence is allocated inside the same transaction as the
// insert, so arrival order and sequence order always agree.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(evt.SessionID) == "" {
		return event.Event{}, apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}
	if !evt.Kind.IsValid() {
		return event.Event{}, apperrors.New(apperrors.CodeEventKindMissing, "event kind is required")
	}
	if strings.TrimSpace(evt.EventID) == "" {
		return event.Event{}, apperrors.New(apperrors.CodeEventIDMissing, "event id is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, classifyAppendError("begin append transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	seq, err := nextEventSeq(ctx, tx, evt.SessionID)
	if err != nil {
		return event.Event{}, err
	}
	evt.Seq = seq

	var roundIdx sql.NullInt64
	if evt.RoundIdx != nil {
		roundIdx = sql.NullInt64{Int64: int64(*evt.RoundIdx), Valid: true}
	}
	var gamePlayer sql.NullInt64
	if evt.GamePlayer != 0 {
		gamePlayer = sql.NullInt64{Int64: int64(evt.GamePlayer), Valid: true}
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO events (
		   session_id, seq, event_id, kind, actor, game_player, player_role,
		   phase, round_idx, payload, t_local_ns, t_utc_iso
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.SessionID,
		int64(evt.Seq),
		evt.EventID,
		string(evt.Kind),
		toNullText(evt.Actor),
		gamePlayer,
		toNullText(evt.PlayerRole),
		toNullText(evt.Phase),
		roundIdx,
		toNullBlob(evt.PayloadJSON),
		evt.TLocalNS,
		toISO(evt.Timestamp),
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, storage.ErrDuplicateEventID
		}
		return event.Event{}, classifyAppendError("insert event", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, classifyAppendError("commit event append", err)
	}
	return evt, nil
}

// nextEventSeq allocates the next per-session sequence inside tx.
func nextEventSeq(ctx context.Context, tx *sql.Tx, sessionID string) (uint64, error) {
	if _, err := tx.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO event_seq (session_id, next_seq) VALUES (?, 1)",
		sessionID,
	); err != nil {
		return 0, classifyAppendError("init event seq", err)
	}

	var seq int64
	row := tx.QueryRowContext(ctx, "SELECT next_seq FROM event_seq WHERE session_id = ?", sessionID)
	if err := row.Scan(&seq); err != nil {
		return 0, classifyAppendError("get event seq", err)
	}
	if seq <= 0 {
		return 0, apperrors.New(apperrors.CodeStorageAppendFailed, "event seq is required")
	}

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE event_seq SET next_seq = next_seq + 1 WHERE session_id = ?",
		sessionID,
	); err != nil {
		return 0, classifyAppendError("increment event seq", err)
	}
	return uint64(seq), nil
}

// ListEvents returns session events ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT session_id, seq, event_id, kind, actor, game_player, player_role,
		        phase, round_idx, payload, t_local_ns, t_utc_iso
		   FROM events
		  WHERE session_id = ? AND seq > ?
		  ORDER BY seq ASC
		  LIMIT ?`,
		sessionID,
		int64(afterSeq),
		limit,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "list events", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "scan event row", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "read event rows", err)
	}
	return events, nil
}

// GetLatestEventSeq returns the latest sequence for a session, 0 when empty.
func (s *Store) GetLatestEventSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, apperrors.New(apperrors.CodeSessionIDMissing, "session id is required")
	}

	var seq sql.NullInt64
	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT MAX(seq) FROM events WHERE session_id = ?",
		sessionID,
	)
	if err := row.Scan(&seq); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "get latest event seq", err)
	}
	if !seq.Valid || seq.Int64 < 0 {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// CountEventsByRound aggregates journal events per round index. Events with
// no round land under round -1 so reconciliation can still account for them.
func (s *Store) CountEventsByRound(ctx context.Context, sessionID string) ([]storage.RoundCount, error) {
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
		`SELECT COALESCE(round_idx, -1) AS round_idx, COUNT(*)
		   FROM events
		  WHERE session_id = ?
		  GROUP BY COALESCE(round_idx, -1)
		  ORDER BY round_idx ASC`,
		sessionID,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "count events by round", err)
	}
	defer rows.Close()

	var counts []storage.RoundCount
	for rows.Next() {
		var rc storage.RoundCount
		if err := rows.Scan(&rc.RoundIdx, &rc.Events); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "scan round count", err)
		}
		counts = append(counts, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "read round counts", err)
	}
	return counts, nil
}

func scanEventRow(rows *sql.Rows) (event.Event, error) {
	var (
		evt        event.Event
		seq        int64
		kind       string
		actor      sql.NullString
		gamePlayer sql.NullInt64
		playerRole sql.NullString
		phase      sql.NullString
		roundIdx   sql.NullInt64
		payload    []byte
		utcISO     string
	)
	if err := rows.Scan(
		&evt.SessionID,
		&seq,
		&evt.EventID,
		&kind,
		&actor,
		&gamePlayer,
		&playerRole,
		&phase,
		&roundIdx,
		&payload,
		&evt.TLocalNS,
		&utcISO,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Kind = event.Kind(kind)
	evt.Actor = actor.String
	if gamePlayer.Valid {
		evt.GamePlayer = int(gamePlayer.Int64)
	}
	evt.PlayerRole = playerRole.String
	evt.Phase = phase.String
	if roundIdx.Valid {
		idx := int(roundIdx.Int64)
		evt.RoundIdx = &idx
	}
	evt.PayloadJSON = payload
	evt.Timestamp = fromISO(utcISO)
	return evt, nil
}

// classifyAppendError maps low-level write failures onto the storage error
// taxonomy so callers can decide between retry and fatal surfacing.
func classifyAppendError(op string, err error) error {
	if isSQLiteBusyError(err) {
		return apperrors.Wrap(apperrors.CodeStorageUnavailable, fmt.Sprintf("%s: database busy", op), err)
	}
	return apperrors.Wrap(apperrors.CodeStorageAppendFailed, op, err)
}

func toNullText(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func toNullBlob(value []byte) []byte {
	if len(value) == 0 {
		return nil
	}
	return value
}
