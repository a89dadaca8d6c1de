package match

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Phase is the match lifecycle state.
type Phase int

const (
	PhaseWaitingForPlayers Phase = iota
	PhaseBothReadyPending
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForPlayers:
		return "waiting_for_players"
	case PhaseBothReadyPending:
		return "both_ready_pending"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var transitions = map[Phase][]Phase{
	PhaseWaitingForPlayers: {PhaseBothReadyPending, PhaseActive},
	PhaseBothReadyPending:  {PhaseActive, PhaseWaitingForPlayers},
	// Active -> Active is a restart after a seat expired and was re-readied.
	PhaseActive: {PhaseEnded, PhaseWaitingForPlayers, PhaseActive},
	PhaseEnded:  {PhaseBothReadyPending, PhaseActive, PhaseWaitingForPlayers},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// FirstMoverPolicy picks who shoots first in a new match.
type FirstMoverPolicy func() SlotIndex

func FixedFirstMover() SlotIndex { return Slot0 }

func RandomFirstMover() SlotIndex { return SlotIndex(rand.IntN(slotCount)) }

// ParseFirstMover maps the FIRST_MOVER setting to a policy.
func ParseFirstMover(name string) (FirstMoverPolicy, error) {
	switch name {
	case "", "fixed":
		return FixedFirstMover, nil
	case "random":
		return RandomFirstMover, nil
	default:
		return nil, fmt.Errorf("unknown first mover policy %q", name)
	}
}

// Lifecycle owns the phase and performs the ready, start and end transitions.
type Lifecycle struct {
	phase      Phase
	state      *MatchState
	registry   *Registry
	turns      *TurnCoordinator
	firstMover FirstMoverPolicy
	newID      func() string
}

func NewLifecycle(state *MatchState, registry *Registry, turns *TurnCoordinator, firstMover FirstMoverPolicy, newID func() string) *Lifecycle {
	if firstMover == nil {
		firstMover = FixedFirstMover
	}
	return &Lifecycle{
		phase:      PhaseWaitingForPlayers,
		state:      state,
		registry:   registry,
		turns:      turns,
		firstMover: firstMover,
		newID:      newID,
	}
}

func (l *Lifecycle) Phase() Phase { return l.phase }

func (l *Lifecycle) transition(to Phase) error {
	if !canTransition(l.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.phase, to)
	}
	l.phase = to
	return nil
}

// ReadyResult describes what a ready signal changed.
type ReadyResult struct {
	Changed bool
	Started bool
	// Restarted is set when an already active match was replaced.
	Restarted  bool
	FirstMover SlotIndex
}

// MarkReady flags the slot ready and activates the match once both are.
func (l *Lifecycle) MarkReady(slot SlotIndex, now time.Time) (ReadyResult, error) {
	if !slot.Valid() {
		return ReadyResult{}, ErrInvalidSlot
	}
	if l.registry.Slot(slot).Ready {
		return ReadyResult{}, nil
	}
	if !l.registry.BothReadyAfter(slot) {
		if l.phase == PhaseActive {
			l.registry.SetReady(slot, true)
			return ReadyResult{Changed: true}, nil
		}
		if err := l.transition(PhaseBothReadyPending); err != nil {
			return ReadyResult{}, err
		}
		l.registry.SetReady(slot, true)
		return ReadyResult{Changed: true}, nil
	}
	wasActive := l.phase == PhaseActive
	if err := l.transition(PhaseActive); err != nil {
		return ReadyResult{}, err
	}
	l.registry.SetReady(slot, true)
	first := l.start(now)
	return ReadyResult{Changed: true, Started: true, Restarted: wasActive, FirstMover: first}, nil
}

func (l *Lifecycle) start(now time.Time) SlotIndex {
	first := l.firstMover()
	if !first.Valid() {
		first = Slot0
	}
	attempts := l.state.ReconnectAttempts
	*l.state = MatchState{ReconnectAttempts: attempts}
	if l.newID != nil {
		l.state.ID = l.newID()
	}
	l.state.Active = true
	l.state.FirstMover = first
	l.state.StartedAt = now
	l.turns.Start(first, now)
	return first
}

// End deactivates the match after a reported game-over. Both ready flags are
// cleared; connections stay. A report while already Ended is accepted without
// change so duplicate or conflicting reports are still relayed.
func (l *Lifecycle) End() (ended bool, err error) {
	if l.phase == PhaseEnded {
		return false, nil
	}
	if err := l.transition(PhaseEnded); err != nil {
		return false, err
	}
	l.state.Active = false
	l.state.clearShot()
	l.registry.ClearReady()
	return true, nil
}

// ReleaseSlot clears a departed seat's ready flag. If neither seat holds a live
// connection any more the match is reset and reports wasActive.
func (l *Lifecycle) ReleaseSlot(slot SlotIndex) (reset bool, wasActive bool) {
	l.registry.SetReady(slot, false)
	l.registry.Free(slot)
	if l.registry.NoneConnected() {
		wasActive = l.state.Active
		l.Reset()
		return true, wasActive
	}
	if l.phase == PhaseBothReadyPending && !l.registry.AnyReady() {
		_ = l.transition(PhaseWaitingForPlayers)
	}
	return false, false
}

// Reset deactivates the match; the next activation starts from scratch. A
// seat still inside its grace window keeps its ready flag until that window
// closes.
func (l *Lifecycle) Reset() {
	l.state.reset()
	for _, slot := range []SlotIndex{Slot0, Slot1} {
		if !l.registry.InGrace(slot) {
			l.registry.SetReady(slot, false)
		}
	}
	l.phase = PhaseWaitingForPlayers
	if l.registry.AnyReady() {
		l.phase = PhaseBothReadyPending
	}
}
