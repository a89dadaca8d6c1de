// Package public serves finished and running match history to anonymous
// readers.
package public

import (
	"context"
	"errors"
	"strings"

	"broadside/internal/store"
)

// HistoryReader is the read side of store.Store.
type HistoryReader interface {
	ListRecentMatches(ctx context.Context, limit int) ([]store.Match, error)
	GetMatch(ctx context.Context, id string) (store.Match, []store.MatchTurn, error)
	ListConnectionEvents(ctx context.Context, matchID string) ([]store.ConnectionEvent, error)
}

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

type Service struct {
	history HistoryReader
}

// NewService accepts a nil reader; every call then reports
// ErrHistoryUnavailable.
func NewService(history HistoryReader) *Service {
	return &Service{history: history}
}

func (s *Service) Matches(ctx context.Context, limit int) (*MatchesResponse, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	limit = clampLimit(limit)
	items, err := s.history.ListRecentMatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MatchItem, 0, len(items))
	for _, m := range items {
		out = append(out, matchItem(m))
	}
	return &MatchesResponse{Items: out, Limit: limit}, nil
}

func (s *Service) Match(ctx context.Context, id string) (*MatchDetailResponse, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if _, ok := store.IDTime(id); !ok {
		return nil, ErrInvalidRequest
	}
	m, turns, err := s.history.GetMatch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	conns, err := s.history.ListConnectionEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &MatchDetailResponse{
		Match:       matchItem(m),
		Turns:       make([]TurnItem, 0, len(turns)),
		Connections: make([]ConnectionItem, 0, len(conns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, TurnItem{Seq: t.Seq, Player: t.Slot, Time: t.At.UnixMilli()})
	}
	for _, c := range conns {
		resp.Connections = append(resp.Connections, ConnectionItem{
			Slot:           c.Slot,
			Kind:           c.Kind,
			Reason:         c.Reason,
			ReconnectCount: c.ReconnectCount,
			At:             c.At,
		})
	}
	return resp, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultMatchLimit
	}
	if limit > maxMatchLimit {
		return maxMatchLimit
	}
	return limit
}

func matchItem(m store.Match) MatchItem {
	return MatchItem{
		MatchID:    m.ID,
		StartedAt:  m.StartedAt,
		EndedAt:    m.EndedAt,
		FirstMover: m.FirstMover,
		Winner:     m.Winner,
		Turns:      m.Turns,
		EndReason:  m.EndReason,
	}
}
