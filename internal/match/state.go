package match

import (
	"time"

	"broadside/internal/protocol"
)

type TurnRecord struct {
	Slot SlotIndex
	At   time.Time
}

// MatchState is the shared turn state. CurrentTurn is only meaningful while
// Active.
type MatchState struct {
	ID                string
	Active            bool
	CurrentTurn       SlotIndex
	FirstMover        SlotIndex
	StartedAt         time.Time
	LastTurnChangeAt  time.Time
	TurnHistory       []TurnRecord
	ReconnectAttempts [slotCount]int
	Shots             int

	shotPending bool
	pendingCell protocol.CellID
}

// PendingShot returns the cell the current shooter fired that has not been
// answered yet.
func (m *MatchState) PendingShot() (protocol.CellID, bool) {
	return m.pendingCell, m.shotPending
}

func (m *MatchState) clearShot() {
	m.shotPending = false
	m.pendingCell = ""
}

// reset returns the state to its zero value. Reconnect counters survive since
// they count per-seat attempts across matches.
func (m *MatchState) reset() {
	attempts := m.ReconnectAttempts
	*m = MatchState{ReconnectAttempts: attempts}
}
