package match

import (
	"time"

	"broadside/internal/protocol"
)

const defaultHistoryWindow = 5

// TurnCoordinator enforces strict alternation: the current slot fires, the
// opposite slot replies, then the turn flips. Nothing else moves the pointer.
type TurnCoordinator struct {
	state    *MatchState
	registry *Registry
	window   int
}

func NewTurnCoordinator(state *MatchState, registry *Registry, window int) *TurnCoordinator {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &TurnCoordinator{state: state, registry: registry, window: window}
}

// Start seeds the history with the opening turn.
func (t *TurnCoordinator) Start(first SlotIndex, now time.Time) {
	t.state.CurrentTurn = first
	t.state.LastTurnChangeAt = now
	t.state.TurnHistory = []TurnRecord{{Slot: first, At: now}}
	t.state.Shots = 0
	t.state.clearShot()
}

// ValidateFire rejects shots from anyone but the current, ready slot, and a
// second shot while the first is unanswered.
func (t *TurnCoordinator) ValidateFire(slot SlotIndex) error {
	if !slot.Valid() || !t.state.Active {
		return ErrTurnViolation
	}
	if slot != t.state.CurrentTurn || !t.registry.Slot(slot).Ready {
		return ErrTurnViolation
	}
	if t.state.shotPending {
		return ErrTurnViolation
	}
	return nil
}

// RecordFire marks the shot outstanding and returns the slot it must be
// relayed to.
func (t *TurnCoordinator) RecordFire(slot SlotIndex, cell protocol.CellID) SlotIndex {
	t.state.shotPending = true
	t.state.pendingCell = cell
	t.state.Shots++
	return slot.Other()
}

// ApplyReply accepts the defender's outcome, flips the turn and appends the new
// turn to history. It returns the shooter the outcome goes back to.
func (t *TurnCoordinator) ApplyReply(slot SlotIndex, now time.Time) (shooter SlotIndex, next SlotIndex, err error) {
	if !slot.Valid() || !t.state.Active || !t.state.shotPending {
		return NoSlot, NoSlot, ErrUnexpectedReply
	}
	if slot == t.state.CurrentTurn || !t.registry.Slot(slot).Ready {
		return NoSlot, NoSlot, ErrUnexpectedReply
	}
	shooter = t.state.CurrentTurn
	next = shooter.Other()
	t.state.clearShot()
	t.state.CurrentTurn = next
	t.state.LastTurnChangeAt = now
	t.state.TurnHistory = append(t.state.TurnHistory, TurnRecord{Slot: next, At: now})
	return shooter, next, nil
}

// RecentHistory returns a copy of the last window entries.
func (t *TurnCoordinator) RecentHistory() []TurnRecord {
	h := t.state.TurnHistory
	if len(h) > t.window {
		h = h[len(h)-t.window:]
	}
	out := make([]TurnRecord, len(h))
	copy(out, h)
	return out
}

func (t *TurnCoordinator) FullHistory() []TurnRecord {
	out := make([]TurnRecord, len(t.state.TurnHistory))
	copy(out, t.state.TurnHistory)
	return out
}

// WireHistory converts history entries to the wire format.
func WireHistory(h []TurnRecord) []protocol.TurnEntry {
	out := make([]protocol.TurnEntry, 0, len(h))
	for _, rec := range h {
		out = append(out, protocol.TurnEntry{Player: int(rec.Slot), Time: protocol.MillisOf(rec.At)})
	}
	return out
}
