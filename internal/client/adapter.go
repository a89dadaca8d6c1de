// Package client is the player side of the relay protocol: a local mirror of
// the match that turns UI actions into frames and server frames into state
// changes and callbacks.
package client

import (
	"errors"
	"fmt"
	"sync"

	"broadside/internal/protocol"
)

var (
	ErrNoSeat         = errors.New("no_seat")
	ErrNotActive      = errors.New("match_not_active")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrShotPending    = errors.New("shot_pending")
	ErrNoIncomingShot = errors.New("no_incoming_shot")
	ErrAlreadyPlaying = errors.New("already_playing")
	// ErrSendFailed wraps a transport failure while answering a server frame.
	ErrSendFailed = errors.New("send_failed")
)

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseAwaitingOpponent
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseAwaitingOpponent:
		return "awaiting_opponent"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Sender writes one event frame to the server.
type Sender interface {
	Send(event string, payload any) error
}

// Handler callbacks are optional and run without the adapter lock held, so
// they may call back into the adapter.
type Handler struct {
	OnPlayerNumber         func(n int)
	OnServerFull           func()
	OnPlayers              func(players []protocol.PlayerStatus)
	OnEnemyReady           func()
	OnGameStarted          func(myTurn bool)
	OnTurnChanged          func(myTurn bool)
	OnIncomingShot         func(cell protocol.CellID)
	OnShotResult           func(cell protocol.CellID, outcome protocol.BoardClass)
	OnShotRejected         func(e protocol.ErrorPayload)
	OnError                func(e protocol.ErrorPayload)
	OnOpponentDisconnected func(slot int)
	OnReconnected          func(r protocol.ReconnectSuccess)
	OnSynced               func(u protocol.GameStateUpdate)
	OnGameOver             func(winner int, won bool)
	OnTimeout              func()
}

// State is the local mirror of the match.
type State struct {
	Phase          Phase
	PlayerNum      int
	MyTurn         bool
	Ready          bool
	EnemyReady     bool
	EnemyConnected bool
	ShotPending    bool
	PendingShot    protocol.CellID
	HasIncoming    bool
	IncomingShot   protocol.CellID
	ConnectionLost bool
	ServerFull     bool
	ReconnectCount int
	Shots          int
	Winner         int
}

type Adapter struct {
	mu     sync.Mutex
	sender Sender
	h      Handler
	st     State
}

func New(sender Sender, h Handler) *Adapter {
	return &Adapter{
		sender: sender,
		h:      h,
		st:     State{Phase: PhaseSetup, PlayerNum: protocol.NoSlot, Winner: protocol.NoSlot},
	}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st
}

// ConnectionLost records that the transport dropped.
func (a *Adapter) ConnectionLost() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.st.ConnectionLost = true
}

// Rebind swaps in a fresh transport. If the previous one was lost after a
// seat was assigned, the adapter asks for that seat back.
func (a *Adapter) Rebind(sender Sender) error {
	a.mu.Lock()
	a.sender = sender
	resume := a.st.ConnectionLost && a.st.PlayerNum != protocol.NoSlot
	num := a.st.PlayerNum
	a.mu.Unlock()
	if !resume {
		return nil
	}
	return a.send(protocol.EventReconnectAttempt, protocol.ReconnectAttempt{PlayerNum: num})
}

func (a *Adapter) send(event string, payload any) error {
	a.mu.Lock()
	s := a.sender
	a.mu.Unlock()
	if s == nil {
		return ErrNoSeat
	}
	return s.Send(event, payload)
}

func (a *Adapter) Ready() error {
	a.mu.Lock()
	if a.st.PlayerNum == protocol.NoSlot {
		a.mu.Unlock()
		return ErrNoSeat
	}
	if a.st.Phase == PhaseActive {
		a.mu.Unlock()
		return ErrAlreadyPlaying
	}
	if a.st.Ready {
		a.mu.Unlock()
		return nil
	}
	a.st.Ready = true
	a.st.Phase = PhaseAwaitingOpponent
	a.mu.Unlock()
	return a.send(protocol.EventPlayerReady, nil)
}

// Fire sends a shot. The shot stays pending until the reply arrives or the
// server rejects it.
func (a *Adapter) Fire(cell protocol.CellID) error {
	a.mu.Lock()
	switch {
	case a.st.Phase != PhaseActive:
		a.mu.Unlock()
		return ErrNotActive
	case !a.st.MyTurn:
		a.mu.Unlock()
		return ErrNotYourTurn
	case a.st.ShotPending:
		a.mu.Unlock()
		return ErrShotPending
	}
	a.st.ShotPending = true
	a.st.PendingShot = cell
	a.mu.Unlock()

	if err := a.send(protocol.EventFire, cell); err != nil {
		a.mu.Lock()
		a.st.ShotPending = false
		a.st.PendingShot = ""
		a.mu.Unlock()
		return err
	}
	return nil
}

// ReplyToShot answers the last incoming shot with this board's own
// classification of the cell.
func (a *Adapter) ReplyToShot(outcome protocol.BoardClass) error {
	a.mu.Lock()
	if !a.st.HasIncoming {
		a.mu.Unlock()
		return ErrNoIncomingShot
	}
	a.st.HasIncoming = false
	a.st.IncomingShot = ""
	a.mu.Unlock()
	return a.send(protocol.EventFireReply, outcome)
}

// ReportGameOver tells the opponent the match is decided.
func (a *Adapter) ReportGameOver(winner int) error {
	a.mu.Lock()
	if a.st.Phase != PhaseActive && a.st.Phase != PhaseEnded {
		a.mu.Unlock()
		return ErrNotActive
	}
	a.endLocked(winner)
	a.mu.Unlock()
	return a.send(protocol.EventGameOver, protocol.GameOver{Winner: winner})
}

func (a *Adapter) Heartbeat() error    { return a.send(protocol.EventHeartbeat, nil) }
func (a *Adapter) CheckPlayers() error { return a.send(protocol.EventCheckPlayers, nil) }
func (a *Adapter) RequestSync() error  { return a.send(protocol.EventSyncGameState, nil) }

// Reconnect asks for the previously held seat.
func (a *Adapter) Reconnect() error {
	a.mu.Lock()
	num := a.st.PlayerNum
	a.mu.Unlock()
	if num == protocol.NoSlot {
		return ErrNoSeat
	}
	return a.send(protocol.EventReconnectAttempt, protocol.ReconnectAttempt{PlayerNum: num})
}

// resetToSetupLocked drops local match state after the server reports the
// match is no longer running.
func (a *Adapter) resetToSetupLocked() {
	a.st.Phase = PhaseSetup
	a.st.Ready = false
	a.st.MyTurn = false
	a.st.ShotPending = false
	a.st.PendingShot = ""
	a.st.HasIncoming = false
	a.st.IncomingShot = ""
}

func (a *Adapter) endLocked(winner int) {
	a.st.Phase = PhaseEnded
	a.st.Winner = winner
	a.st.Ready = false
	a.st.EnemyReady = false
	a.st.MyTurn = false
	a.st.ShotPending = false
	a.st.PendingShot = ""
	a.st.HasIncoming = false
	a.st.IncomingShot = ""
}
