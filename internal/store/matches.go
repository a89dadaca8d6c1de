package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMatch(ctx context.Context, id string, firstMover int, startedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO matches (id, started_at, first_mover) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		id, startedAt, firstMover)
	return err
}

// AppendTurn stores one turn-history entry. Replays of the same seq are
// ignored so the recorder can retry.
func (s *Store) AppendTurn(ctx context.Context, t MatchTurn) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO match_turns (id, match_id, seq, slot, at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_id, seq) DO NOTHING`,
		NewID(), t.MatchID, t.Seq, t.Slot, t.At)
	return err
}

func (s *Store) RecordConnectionEvent(ctx context.Context, ev ConnectionEvent) error {
	if ev.ID == "" {
		ev.ID = NewID()
	}
	var matchID any
	if ev.MatchID != "" {
		matchID = ev.MatchID
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO match_connections (id, match_id, slot, kind, reason, reconnect_count, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, matchID, ev.Slot, ev.Kind, ev.Reason, ev.ReconnectCount, ev.At)
	return err
}

// EndMatch closes a match once. A nil winner records an abandoned or
// restarted match.
func (s *Store) EndMatch(ctx context.Context, id string, winner *int, reason string, endedAt time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE matches
		 SET ended_at = $2, winner = $3, end_reason = $4,
		     turns = (SELECT count(*) FROM match_turns WHERE match_id = $1)
		 WHERE id = $1 AND ended_at IS NULL`,
		id, endedAt, winner, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (Match, []MatchTurn, error) {
	m, err := scanMatch(s.Pool.QueryRow(ctx,
		`SELECT id, started_at, ended_at, first_mover, winner, turns, end_reason
		 FROM matches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Match{}, nil, ErrNotFound
	}
	if err != nil {
		return Match{}, nil, err
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT match_id, seq, slot, at FROM match_turns WHERE match_id = $1 ORDER BY seq`, id)
	if err != nil {
		return Match{}, nil, err
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MatchTurn, error) {
		var t MatchTurn
		err := row.Scan(&t.MatchID, &t.Seq, &t.Slot, &t.At)
		return t, err
	})
	if err != nil {
		return Match{}, nil, err
	}
	if !m.Finished() {
		m.Turns = len(turns)
	}
	return m, turns, nil
}

func (s *Store) ListRecentMatches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, started_at, ended_at, first_mover, winner, turns, end_reason
		 FROM matches ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		return scanMatch(row)
	})
}

func (s *Store) ListConnectionEvents(ctx context.Context, matchID string) ([]ConnectionEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, slot, kind, reason, reconnect_count, at
		 FROM match_connections WHERE match_id = $1 ORDER BY at, id`, matchID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ConnectionEvent, error) {
		ev := ConnectionEvent{MatchID: matchID}
		err := row.Scan(&ev.ID, &ev.Slot, &ev.Kind, &ev.Reason, &ev.ReconnectCount, &ev.At)
		return ev, err
	})
}

func scanMatch(row pgx.Row) (Match, error) {
	var (
		m      Match
		winner *int16
	)
	var first int16
	if err := row.Scan(&m.ID, &m.StartedAt, &m.EndedAt, &first, &winner, &m.Turns, &m.EndReason); err != nil {
		return Match{}, err
	}
	m.FirstMover = int(first)
	if winner != nil {
		w := int(*winner)
		m.Winner = &w
	}
	return m, nil
}
