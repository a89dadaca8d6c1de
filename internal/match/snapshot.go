package match

import "time"

type SlotView struct {
	Index          SlotIndex
	ConnectionID   string
	Connected      bool
	Occupied       bool
	Ready          bool
	InGrace        bool
	LastActivityAt time.Time
	DisconnectedAt time.Time
	GraceDeadline  time.Time
	Reconnects     int
}

// Snapshot is a point-in-time copy of the session for health and debug views.
type Snapshot struct {
	MatchID          string
	Phase            Phase
	Active           bool
	CurrentTurn      SlotIndex
	FirstMover       SlotIndex
	StartedAt        time.Time
	LastTurnChangeAt time.Time
	Shots            int
	ShotPending      bool
	Slots            [slotCount]SlotView
	TurnHistory      []TurnRecord
	RecentHistory    []TurnRecord
	Pending          int
	Timers           []string
	CreatedAt        time.Time
	TakenAt          time.Time
}

// PlayersConnected counts seats with a live connection.
func (s Snapshot) PlayersConnected() int {
	n := 0
	for _, v := range s.Slots {
		if v.Connected {
			n++
		}
	}
	return n
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		MatchID:          s.state.ID,
		Phase:            s.lifecycle.Phase(),
		Active:           s.state.Active,
		CurrentTurn:      s.state.CurrentTurn,
		FirstMover:       s.state.FirstMover,
		StartedAt:        s.state.StartedAt,
		LastTurnChangeAt: s.state.LastTurnChangeAt,
		Shots:            s.state.Shots,
		TurnHistory:      s.turns.FullHistory(),
		RecentHistory:    s.turns.RecentHistory(),
		Pending:          len(s.pending),
		Timers:           s.sched.Pending(),
		CreatedAt:        s.createdAt,
		TakenAt:          s.clock.Now(),
	}
	_, snap.ShotPending = s.state.PendingShot()
	for i, slot := range s.registry.Slots() {
		idx := SlotIndex(i)
		v := SlotView{
			Index:          idx,
			ConnectionID:   slot.ConnectionID,
			Connected:      slot.Connected(),
			Occupied:       slot.Occupied,
			Ready:          slot.Ready,
			InGrace:        s.registry.InGrace(idx),
			LastActivityAt: slot.LastActivityAt,
			DisconnectedAt: slot.DisconnectedAt,
			Reconnects:     s.state.ReconnectAttempts[idx],
		}
		if due, ok := s.reconnector.Deadline(idx); ok {
			v.GraceDeadline = due
		}
		snap.Slots[i] = v
	}
	return snap
}
