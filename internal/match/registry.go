package match

import "time"

// Slot is one seat of the match.
type Slot struct {
	ConnectionID   string
	Ready          bool
	LastActivityAt time.Time
	// Occupied stays true while a disconnected seat waits out its grace window.
	Occupied       bool
	DisconnectedAt time.Time
}

// Connected reports whether a live transport connection holds the seat.
func (s Slot) Connected() bool {
	return s.ConnectionID != ""
}

// Registry is the fixed two-seat table. It is not safe for concurrent use; the
// owning MatchSession serializes access.
type Registry struct {
	slots [slotCount]Slot
}

func NewRegistry() *Registry {
	return &Registry{}
}

// AssignSlot binds connID to the lowest unoccupied seat.
func (r *Registry) AssignSlot(connID string, now time.Time) (SlotIndex, error) {
	for i := range r.slots {
		if r.slots[i].Occupied {
			continue
		}
		r.slots[i] = Slot{
			ConnectionID:   connID,
			Occupied:       true,
			LastActivityAt: now,
		}
		return SlotIndex(i), nil
	}
	return NoSlot, ErrServerFull
}

// MarkConnected rebinds an occupied seat to a new connection. Ready is kept.
func (r *Registry) MarkConnected(slot SlotIndex, connID string, now time.Time) error {
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	s := &r.slots[slot]
	s.ConnectionID = connID
	s.Occupied = true
	s.LastActivityAt = now
	s.DisconnectedAt = time.Time{}
	return nil
}

// MarkDisconnected drops the connection but keeps the seat and its ready flag.
// It returns the connection id that was bound.
func (r *Registry) MarkDisconnected(slot SlotIndex, now time.Time) (string, error) {
	if !slot.Valid() {
		return "", ErrInvalidSlot
	}
	s := &r.slots[slot]
	prev := s.ConnectionID
	s.ConnectionID = ""
	s.DisconnectedAt = now
	return prev, nil
}

func (r *Registry) Touch(slot SlotIndex, now time.Time) {
	if slot.Valid() {
		r.slots[slot].LastActivityAt = now
	}
}

// SweepInactive lists connected seats idle for longer than timeout.
func (r *Registry) SweepInactive(now time.Time, timeout time.Duration) []SlotIndex {
	var idle []SlotIndex
	for i, s := range r.slots {
		if !s.Connected() {
			continue
		}
		if now.Sub(s.LastActivityAt) > timeout {
			idle = append(idle, SlotIndex(i))
		}
	}
	return idle
}

// Free empties the seat.
func (r *Registry) Free(slot SlotIndex) {
	if slot.Valid() {
		r.slots[slot] = Slot{}
	}
}

func (r *Registry) SetReady(slot SlotIndex, ready bool) {
	if slot.Valid() {
		r.slots[slot].Ready = ready
	}
}

func (r *Registry) ClearReady() {
	for i := range r.slots {
		r.slots[i].Ready = false
	}
}

func (r *Registry) Slot(slot SlotIndex) Slot {
	if !slot.Valid() {
		return Slot{}
	}
	return r.slots[slot]
}

func (r *Registry) Slots() [slotCount]Slot {
	return r.slots
}

// SlotOf returns the seat bound to connID, or NoSlot.
func (r *Registry) SlotOf(connID string) SlotIndex {
	if connID == "" {
		return NoSlot
	}
	for i, s := range r.slots {
		if s.ConnectionID == connID {
			return SlotIndex(i)
		}
	}
	return NoSlot
}

func (r *Registry) ConnectedCount() int {
	n := 0
	for _, s := range r.slots {
		if s.Connected() {
			n++
		}
	}
	return n
}

func (r *Registry) BothReady() bool {
	return r.slots[Slot0].Ready && r.slots[Slot1].Ready
}

func (r *Registry) AnyReady() bool {
	return r.slots[Slot0].Ready || r.slots[Slot1].Ready
}

// NoneConnected reports whether neither seat has a live connection.
func (r *Registry) NoneConnected() bool {
	return r.ConnectedCount() == 0
}

// InGrace reports whether the seat is held for a disconnected player.
func (r *Registry) InGrace(slot SlotIndex) bool {
	if !slot.Valid() {
		return false
	}
	s := r.slots[slot]
	return s.Occupied && !s.Connected()
}

// BothReadyAfter reports whether both seats would be ready once slot is.
func (r *Registry) BothReadyAfter(slot SlotIndex) bool {
	if !slot.Valid() {
		return false
	}
	return r.slots[slot.Other()].Ready
}
