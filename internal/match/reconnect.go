package match

import (
	"fmt"
	"time"
)

const defaultGracePeriod = 60 * time.Second

func graceKey(slot SlotIndex) string {
	return fmt.Sprintf("grace:%d", slot)
}

// Reconnector tracks the grace window of each disconnected seat. Expiry is
// handed back to the session through onExpire.
type Reconnector struct {
	registry *Registry
	state    *MatchState
	sched    *Scheduler
	grace    time.Duration
	onExpire func(slot SlotIndex, now time.Time) []Outbound
}

func NewReconnector(registry *Registry, state *MatchState, sched *Scheduler, grace time.Duration, onExpire func(SlotIndex, time.Time) []Outbound) *Reconnector {
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	return &Reconnector{
		registry: registry,
		state:    state,
		sched:    sched,
		grace:    grace,
		onExpire: onExpire,
	}
}

// BeginGrace detaches the connection from slot and starts its grace window.
func (r *Reconnector) BeginGrace(slot SlotIndex, now time.Time) (time.Time, error) {
	if _, err := r.registry.MarkDisconnected(slot, now); err != nil {
		return time.Time{}, err
	}
	due := r.sched.Schedule(graceKey(slot), r.grace, func(at time.Time) []Outbound {
		if !r.registry.InGrace(slot) {
			return nil
		}
		return r.onExpire(slot, at)
	})
	return due, nil
}

// Reconnect binds connID to a seat that is inside its grace window. The timer
// is cancelled and the attempt counted; ready and turn state are untouched.
func (r *Reconnector) Reconnect(slot SlotIndex, connID string, now time.Time) (int, error) {
	if !slot.Valid() {
		return 0, ErrSessionExpired
	}
	if !r.registry.InGrace(slot) {
		return 0, ErrSessionExpired
	}
	if !r.sched.Cancel(graceKey(slot)) {
		return 0, ErrSessionExpired
	}
	if err := r.registry.MarkConnected(slot, connID, now); err != nil {
		return 0, err
	}
	r.state.ReconnectAttempts[slot]++
	return r.state.ReconnectAttempts[slot], nil
}

// Abandon drops a grace window without running expiry.
func (r *Reconnector) Abandon(slot SlotIndex) {
	r.sched.Cancel(graceKey(slot))
}

func (r *Reconnector) Deadline(slot SlotIndex) (time.Time, bool) {
	return r.sched.Due(graceKey(slot))
}
