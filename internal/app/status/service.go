// Package status renders the relay's health, roster and debug views from
// session snapshots.
package status

import (
	"time"

	"broadside/internal/match"
	"broadside/internal/store"
	"broadside/internal/ws"
)

type SnapshotSource interface {
	Snapshot() match.Snapshot
}

type TransportStats interface {
	Stats() ws.Stats
}

type RecorderStats interface {
	Stats() store.RecorderStats
}

type Options struct {
	// Production hides the debug view.
	Production bool
	StartedAt  time.Time
	Recorder   RecorderStats
}

type Service struct {
	session   SnapshotSource
	transport TransportStats
	opts      Options
	now       func() time.Time
}

func NewService(session SnapshotSource, transport TransportStats, opts Options) *Service {
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}
	return &Service{session: session, transport: transport, opts: opts, now: time.Now}
}

func (s *Service) Health() HealthResponse {
	snap := s.session.Snapshot()
	resp := HealthResponse{
		Status:     "running",
		Players:    snap.PlayersConnected(),
		Uptime:     s.now().Sub(s.opts.StartedAt).Seconds(),
		GameActive: snap.Active,
	}
	if snap.Active {
		resp.CurrentTurn = intPtr(int(snap.CurrentTurn))
	}
	for i, v := range snap.Slots {
		if !v.LastActivityAt.IsZero() {
			ts := v.LastActivityAt.UTC().Format(time.RFC3339Nano)
			resp.LastActivity[i] = &ts
		}
	}
	return resp
}

func (s *Service) Roster() RosterResponse {
	snap := s.session.Snapshot()
	out := RosterResponse{Phase: snap.Phase.String(), Pending: snap.Pending}
	for _, v := range snap.Slots {
		out.Seats = append(out.Seats, seatStatus(v))
	}
	return out
}

// TurnHistory returns the recent window, or every entry when full is set.
func (s *Service) TurnHistory(full bool) TurnHistoryResponse {
	snap := s.session.Snapshot()
	out := TurnHistoryResponse{MatchID: snap.MatchID, Active: snap.Active, Window: "recent"}
	h := snap.RecentHistory
	if full {
		h = snap.TurnHistory
		out.Window = "full"
	}
	out.Turns = match.WireHistory(h)
	if snap.Active {
		out.CurrentTurn = intPtr(int(snap.CurrentTurn))
	}
	return out
}

func (s *Service) Seat(slot int) (SeatStatus, error) {
	idx := match.SlotIndex(slot)
	if !idx.Valid() {
		return SeatStatus{}, ErrInvalidSlot
	}
	return seatStatus(s.session.Snapshot().Slots[idx]), nil
}

func (s *Service) DebugState() (DebugState, error) {
	if s.opts.Production {
		return DebugState{}, ErrDebugDisabled
	}
	snap := s.session.Snapshot()
	out := DebugState{
		MatchID:          snap.MatchID,
		Phase:            snap.Phase.String(),
		Active:           snap.Active,
		CurrentTurn:      int(snap.CurrentTurn),
		FirstMover:       int(snap.FirstMover),
		StartedAt:        timePtr(snap.StartedAt),
		LastTurnChangeAt: timePtr(snap.LastTurnChangeAt),
		Shots:            snap.Shots,
		ShotPending:      snap.ShotPending,
		TurnHistory:      match.WireHistory(snap.TurnHistory),
		Pending:          snap.Pending,
		Timers:           snap.Timers,
		TakenAt:          snap.TakenAt,
	}
	for _, v := range snap.Slots {
		out.Seats = append(out.Seats, DebugSeat{
			SeatStatus:     seatStatus(v),
			ConnectionID:   v.ConnectionID,
			DisconnectedAt: timePtr(v.DisconnectedAt),
		})
	}
	if s.transport != nil {
		out.Transport = s.transport.Stats()
	}
	if s.opts.Recorder != nil {
		st := s.opts.Recorder.Stats()
		out.History = &st
	}
	return out, nil
}

func seatStatus(v match.SlotView) SeatStatus {
	return SeatStatus{
		Slot:           int(v.Index),
		Connected:      v.Connected,
		Occupied:       v.Occupied,
		Ready:          v.Ready,
		InGrace:        v.InGrace,
		GraceDeadline:  timePtr(v.GraceDeadline),
		LastActivityAt: timePtr(v.LastActivityAt),
		Reconnects:     v.Reconnects,
	}
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
