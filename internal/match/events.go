package match

import "time"

type EventKind string

const (
	EventSlotConnected    EventKind = "slot_connected"
	EventSlotDisconnected EventKind = "slot_disconnected"
	EventSlotReconnected  EventKind = "slot_reconnected"
	EventSlotReleased     EventKind = "slot_released"
	EventPlayerReady      EventKind = "player_ready"
	EventMatchStarted     EventKind = "match_started"
	EventShotFired        EventKind = "shot_fired"
	EventTurnChanged      EventKind = "turn_changed"
	EventMatchEnded       EventKind = "match_ended"
)

// End reasons carried by EventMatchEnded and EventSlotReleased.
const (
	ReasonReported       = "reported"
	ReasonAbandoned      = "abandoned"
	ReasonRestarted      = "restarted"
	ReasonGraceExpired   = "grace_expired"
	ReasonInactive       = "inactive"
	ReasonSessionTimeout = "session_timeout"
	ReasonClientClosed   = "client_closed"
	ReasonSeatSwitched   = "seat_switched"
)

// Event is a lifecycle notification for observers.
type Event struct {
	Kind           EventKind
	MatchID        string
	Slot           SlotIndex
	Turn           SlotIndex
	Winner         SlotIndex
	Seq            int
	ReconnectCount int
	Reason         string
	At             time.Time
}

// Observer receives lifecycle events while the session lock is held.
// Implementations must not block and must not call back into the session.
type Observer interface {
	OnMatchEvent(ev Event)
}

type ObserverFunc func(ev Event)

func (f ObserverFunc) OnMatchEvent(ev Event) { f(ev) }
