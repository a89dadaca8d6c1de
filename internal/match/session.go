package match

import (
	"context"
	"sync"
	"time"

	"broadside/internal/protocol"

	"github.com/rs/zerolog/log"
)

const (
	defaultInactivityTimeout = 120 * time.Second
	defaultSessionTimeout    = 30 * time.Minute
	defaultSweepInterval     = 30 * time.Second
)

// Transport delivers encoded frames to connections. Send must not block.
type Transport interface {
	Send(connID string, frame []byte) bool
	Close(connID string)
}

// Outbound is one frame for one connection. Close asks the transport to drop
// the connection after the frame (if any) is queued.
type Outbound struct {
	ConnID  string
	Event   string
	Payload any
	Close   bool
}

type Options struct {
	GracePeriod       time.Duration
	InactivityTimeout time.Duration
	SessionTimeout    time.Duration
	HistoryWindow     int
	FirstMover        FirstMoverPolicy
	Clock             Clock
	// NewID assigns match ids on activation.
	NewID func() string
}

// Session is the single match served by the relay.
type Session struct {
	mu sync.Mutex

	opts      Options
	clock     Clock
	transport Transport
	observers []Observer

	registry    *Registry
	state       *MatchState
	turns       *TurnCoordinator
	lifecycle   *Lifecycle
	reconnector *Reconnector
	sched       *Scheduler

	pending   map[string]time.Time
	createdAt time.Time
	closed    bool
}

func NewSession(transport Transport, opts Options, observers ...Observer) *Session {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = defaultInactivityTimeout
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = defaultSessionTimeout
	}
	s := &Session{
		opts:      opts,
		clock:     opts.Clock,
		transport: transport,
		observers: observers,
		registry:  NewRegistry(),
		state:     &MatchState{},
		pending:   map[string]time.Time{},
	}
	s.createdAt = s.clock.Now()
	s.sched = NewScheduler(s.clock, &s.mu, s.deliver)
	s.turns = NewTurnCoordinator(s.state, s.registry, opts.HistoryWindow)
	s.lifecycle = NewLifecycle(s.state, s.registry, s.turns, opts.FirstMover, opts.NewID)
	s.reconnector = NewReconnector(s.registry, s.state, s.sched, opts.GracePeriod, s.expireLocked)
	return s
}

// AddObserver registers an observer. Call before serving connections.
func (s *Session) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Close cancels every pending timer. Later operations are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sched.CancelAll()
}

// StartJanitor runs the inactivity sweep until ctx is cancelled.
func (s *Session) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepInactive()
			}
		}
	}()
}

func sessionKey(connID string) string {
	return "session:" + connID
}

func (s *Session) deliver(outs []Outbound) {
	if s.transport == nil {
		return
	}
	for _, out := range outs {
		if out.ConnID == "" {
			continue
		}
		if out.Event != "" {
			frame, err := protocol.Encode(out.Event, out.Payload)
			if err != nil {
				log.Error().Err(err).Str("event", out.Event).Msg("encode_outbound_failed")
				continue
			}
			if !s.transport.Send(out.ConnID, frame) {
				log.Warn().Str("conn_id", out.ConnID).Str("event", out.Event).Msg("outbound_dropped")
			}
		}
		if out.Close {
			s.transport.Close(out.ConnID)
		}
	}
}

func (s *Session) emit(ev Event) {
	if ev.MatchID == "" {
		ev.MatchID = s.state.ID
	}
	for _, o := range s.observers {
		o.OnMatchEvent(ev)
	}
}

func (s *Session) to(slot SlotIndex, event string, payload any) []Outbound {
	conn := s.registry.Slot(slot).ConnectionID
	if conn == "" {
		return nil
	}
	return []Outbound{{ConnID: conn, Event: event, Payload: payload}}
}

func (s *Session) toBoth(event string, payload any) []Outbound {
	var outs []Outbound
	for i := range slotCount {
		outs = append(outs, s.to(SlotIndex(i), event, payload)...)
	}
	return outs
}

func errorTo(connID string, err error) Outbound {
	return Outbound{ConnID: connID, Event: protocol.EventError, Payload: MapError(err)}
}

// run serializes one inbound operation. The sender's seat, if any, is touched
// first so rejected messages still count as activity.
func (s *Session) run(connID string, fn func(slot SlotIndex, now time.Time) ([]Outbound, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	now := s.clock.Now()
	slot := s.registry.SlotOf(connID)
	s.registry.Touch(slot, now)
	outs, err := fn(slot, now)
	if err != nil {
		outs = append(outs, errorTo(connID, err))
	}
	s.deliver(outs)
	return err
}

// Connect admits a new transport connection: it gets the lowest free seat, is
// held pending while a seat waits out its grace window, or is told the server
// is full and dropped.
func (s *Session) Connect(connID string) (SlotIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NoSlot, ErrServerFull
	}
	now := s.clock.Now()
	if slot := s.registry.SlotOf(connID); slot != NoSlot {
		return slot, nil
	}
	slot, outs, err := s.admitLocked(connID, now)
	s.deliver(outs)
	return slot, err
}

func (s *Session) admitLocked(connID string, now time.Time) (SlotIndex, []Outbound, error) {
	slot, err := s.registry.AssignSlot(connID, now)
	if err != nil {
		if s.registry.InGrace(Slot0) || s.registry.InGrace(Slot1) {
			if _, ok := s.pending[connID]; !ok {
				s.pending[connID] = now
				s.scheduleSessionTimeout(connID)
			}
			log.Info().Str("conn_id", connID).Msg("connection_pending")
			return NoSlot, nil, nil
		}
		delete(s.pending, connID)
		s.sched.Cancel(sessionKey(connID))
		log.Info().Str("conn_id", connID).Msg("server_full")
		return NoSlot, []Outbound{{ConnID: connID, Event: protocol.EventPlayerNumber, Payload: protocol.NoSlot, Close: true}}, ErrServerFull
	}
	if _, ok := s.pending[connID]; ok {
		delete(s.pending, connID)
	} else {
		s.scheduleSessionTimeout(connID)
	}
	log.Info().Str("conn_id", connID).Int("slot", int(slot)).Msg("player_connected")
	outs := []Outbound{{ConnID: connID, Event: protocol.EventPlayerNumber, Payload: int(slot)}}
	outs = append(outs, s.to(slot.Other(), protocol.EventPlayerConnection, int(slot))...)
	s.emit(Event{Kind: EventSlotConnected, Slot: slot, At: now})
	return slot, outs, nil
}

// admitPendingLocked hands a freed seat to the longest waiting connection.
func (s *Session) admitPendingLocked(now time.Time) []Outbound {
	var (
		oldest string
		at     time.Time
	)
	for id, t := range s.pending {
		if oldest == "" || t.Before(at) || (t.Equal(at) && id < oldest) {
			oldest, at = id, t
		}
	}
	if oldest == "" {
		return nil
	}
	_, outs, _ := s.admitLocked(oldest, now)
	return outs
}

func (s *Session) scheduleSessionTimeout(connID string) {
	s.sched.Schedule(sessionKey(connID), s.opts.SessionTimeout, func(now time.Time) []Outbound {
		return s.sessionTimeoutLocked(connID, now)
	})
}

func (s *Session) sessionTimeoutLocked(connID string, now time.Time) []Outbound {
	if _, ok := s.pending[connID]; ok {
		delete(s.pending, connID)
		return []Outbound{{ConnID: connID, Event: protocol.EventTimeout, Close: true}}
	}
	slot := s.registry.SlotOf(connID)
	if slot == NoSlot {
		return nil
	}
	log.Info().Int("slot", int(slot)).Str("conn_id", connID).Msg("session_timeout")
	return s.evictLocked(slot, now, ReasonSessionTimeout, true)
}

// Disconnect handles a transport connection going away. A seated player
// enters the grace window.
func (s *Session) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	now := s.clock.Now()
	s.sched.Cancel(sessionKey(connID))
	if _, ok := s.pending[connID]; ok {
		delete(s.pending, connID)
		return
	}
	slot := s.registry.SlotOf(connID)
	if slot == NoSlot {
		return
	}
	due, err := s.reconnector.BeginGrace(slot, now)
	if err != nil {
		return
	}
	log.Info().Int("slot", int(slot)).Time("grace_deadline", due).Msg("player_disconnected")
	s.deliver(s.departLocked(slot, now, ReasonClientClosed))
}

// departLocked notifies the remaining party that slot lost its connection.
func (s *Session) departLocked(slot SlotIndex, now time.Time, reason string) []Outbound {
	other := slot.Other()
	outs := s.to(other, protocol.EventPlayerConnection, int(slot))
	if s.lifecycle.Phase() == PhaseActive {
		outs = append(outs, s.to(other, protocol.EventOpponentDisconnected, protocol.OpponentDisconnected{DisconnectedPlayer: int(slot)})...)
	}
	s.emit(Event{Kind: EventSlotDisconnected, Slot: slot, Reason: reason, At: now})
	return outs
}

// evictLocked forcibly drops a seated connection. The seat is released at once
// with no grace window.
func (s *Session) evictLocked(slot SlotIndex, now time.Time, reason string, notice bool) []Outbound {
	connID := s.registry.Slot(slot).ConnectionID
	var outs []Outbound
	if connID != "" {
		s.sched.Cancel(sessionKey(connID))
		if notice {
			outs = append(outs, Outbound{ConnID: connID, Event: protocol.EventTimeout})
		}
		outs = append(outs, Outbound{ConnID: connID, Close: true})
		if _, err := s.registry.MarkDisconnected(slot, now); err == nil {
			outs = append(outs, s.departLocked(slot, now, reason)...)
		}
	}
	s.reconnector.Abandon(slot)
	return append(outs, s.releaseLocked(slot, now, reason)...)
}

// expireLocked runs when a grace window closes without a reconnect.
func (s *Session) expireLocked(slot SlotIndex, now time.Time) []Outbound {
	log.Info().Int("slot", int(slot)).Msg("reconnect_grace_expired")
	return s.releaseLocked(slot, now, ReasonGraceExpired)
}

func (s *Session) releaseLocked(slot SlotIndex, now time.Time, reason string) []Outbound {
	matchID := s.state.ID
	reset, wasActive := s.lifecycle.ReleaseSlot(slot)
	s.emit(Event{Kind: EventSlotReleased, MatchID: matchID, Slot: slot, Reason: reason, At: now})
	if reset {
		log.Info().Str("match_id", matchID).Bool("was_active", wasActive).Msg("match_reset")
		if wasActive {
			s.emit(Event{Kind: EventMatchEnded, MatchID: matchID, Winner: NoSlot, Reason: ReasonAbandoned, At: now})
		}
	}
	return s.admitPendingLocked(now)
}

// SweepInactive force-disconnects seats idle past the inactivity timeout and
// returns them.
func (s *Session) SweepInactive() []SlotIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	now := s.clock.Now()
	idle := s.registry.SweepInactive(now, s.opts.InactivityTimeout)
	var outs []Outbound
	for _, slot := range idle {
		log.Info().Int("slot", int(slot)).Msg("inactive_player_swept")
		outs = append(outs, s.evictLocked(slot, now, ReasonInactive, false)...)
	}
	s.deliver(outs)
	return idle
}

// Ready marks the sender's seat ready and starts the match once both are.
func (s *Session) Ready(connID string) error {
	return s.run(connID, func(slot SlotIndex, now time.Time) ([]Outbound, error) {
		if slot == NoSlot {
			return nil, ErrUnknownConnection
		}
		prevID := s.state.ID
		res, err := s.lifecycle.MarkReady(slot, now)
		if err != nil {
			return nil, err
		}
		if !res.Changed {
			return nil, nil
		}
		log.Info().Int("slot", int(slot)).Msg("player_ready")
		outs := s.to(slot.Other(), protocol.EventEnemyReady, int(slot))
		s.emit(Event{Kind: EventPlayerReady, Slot: slot, At: now})
		if res.Started {
			if res.Restarted {
				s.emit(Event{Kind: EventMatchEnded, MatchID: prevID, Winner: NoSlot, Reason: ReasonRestarted, At: now})
			}
			log.Info().Str("match_id", s.state.ID).Int("first_mover", int(res.FirstMover)).Msg("match_started")
			outs = append(outs, s.toBoth(protocol.EventGameStarted, int(res.FirstMover))...)
			s.emit(Event{Kind: EventMatchStarted, Turn: res.FirstMover, Seq: 1, At: now})
		}
		return outs, nil
	})
}

// Fire relays a shot from the current slot to its opponent.
func (s *Session) Fire(connID string, cell protocol.CellID) error {
	return s.run(connID, func(slot SlotIndex, now time.Time) ([]Outbound, error) {
		if slot == NoSlot {
			return nil, ErrUnknownConnection
		}
		if err := s.turns.ValidateFire(slot); err != nil {
			log.Warn().Int("slot", int(slot)).Int("current_turn", int(s.state.CurrentTurn)).Msg("fire_out_of_turn")
			return nil, err
		}
		target := s.turns.RecordFire(slot, cell)
		log.Debug().Int("slot", int(slot)).Str("cell", string(cell)).Msg("player_fired")
		s.emit(Event{Kind: EventShotFired, Slot: slot, Turn: s.state.CurrentTurn, Seq: s.state.Shots, At: now})
		return s.to(target, protocol.EventFire, cell), nil
	})
}

// Reply relays the defender's outcome back to the shooter and flips the turn.
func (s *Session) Reply(connID string, outcome protocol.BoardClass) error {
	return s.run(connID, func(slot SlotIndex, now time.Time) ([]Outbound, error) {
		if slot == NoSlot {
			return nil, ErrUnknownConnection
		}
		shooter, next, err := s.turns.ApplyReply(slot, now)
		if err != nil {
			log.Warn().Int("slot", int(slot)).Msg("unexpected_fire_reply")
			return nil, err
		}
		log.Debug().Int("slot", int(slot)).Int("next_turn", int(next)).Msg("turn_changed")
		outs := s.to(shooter, protocol.EventFireReply, outcome)
		outs = append(outs, s.toBoth(protocol.EventUpdateTurn, int(next))...)
		s.emit(Event{Kind: EventTurnChanged, Slot: slot, Turn: next, Seq: len(s.state.TurnHistory), At: now})
		return outs, nil
	})
}

// GameOver relays a client's end-of-match report and ends the match. Reports
// are trusted; there is no cross-check between the two clients.
func (s *Session) GameOver(connID string, report protocol.GameOver) error {
	return s.run(connID, func(slot SlotIndex, now time.Time) ([]Outbound, error) {
		if slot == NoSlot {
			return nil, ErrUnknownConnection
		}
		ended, err := s.lifecycle.End()
		if err != nil {
			return nil, err
		}
		outs := s.to(slot.Other(), protocol.EventGameOver, report)
		if ended {
			winner := SlotIndex(report.Winner)
			if !winner.Valid() {
				winner = NoSlot
			}
			log.Info().Str("match_id", s.state.ID).Int("winner", report.Winner).Int("reported_by", int(slot)).Msg("match_ended")
			s.emit(Event{Kind: EventMatchEnded, Slot: slot, Winner: winner, Seq: len(s.state.TurnHistory), Reason: ReasonReported, At: now})
		}
		return outs, nil
	})
}

// ReconnectAttempt binds the sender to playerNum if that seat is inside its
// grace window. A connection that was handed a fresh, unready seat on arrival
// gives it up in the switch.
func (s *Session) ReconnectAttempt(connID string, playerNum int) error {
	return s.run(connID, func(cur SlotIndex, now time.Time) ([]Outbound, error) {
		target := SlotIndex(playerNum)
		_, isPending := s.pending[connID]
		if cur == NoSlot && !isPending {
			return nil, ErrUnknownConnection
		}
		if !target.Valid() || cur == target || !s.registry.InGrace(target) {
			if isPending {
				_, admitted, _ := s.admitLocked(connID, now)
				return admitted, ErrSessionExpired
			}
			return nil, ErrSessionExpired
		}
		var outs []Outbound
		if cur != NoSlot {
			if s.registry.Slot(cur).Ready {
				return nil, ErrIllegalTransition
			}
			s.registry.Free(cur)
			outs = append(outs, s.to(cur.Other(), protocol.EventPlayerConnection, int(cur))...)
			s.emit(Event{Kind: EventSlotReleased, Slot: cur, Reason: ReasonSeatSwitched, At: now})
		}
		count, err := s.reconnector.Reconnect(target, connID, now)
		if err != nil {
			return outs, err
		}
		delete(s.pending, connID)
		log.Info().Int("slot", int(target)).Int("reconnect_count", count).Msg("player_reconnected")
		outs = append(outs,
			Outbound{ConnID: connID, Event: protocol.EventReconnectSuccess, Payload: protocol.ReconnectSuccess{
				PlayerIndex:    int(target),
				CurrentTurn:    int(s.state.CurrentTurn),
				GameActive:     s.state.Active,
				ReconnectCount: count,
			}},
			Outbound{ConnID: connID, Event: protocol.EventGameStateUpdate, Payload: s.stateUpdateLocked()},
		)
		if cell, ok := s.state.PendingShot(); ok && target == s.state.CurrentTurn.Other() {
			outs = append(outs, Outbound{ConnID: connID, Event: protocol.EventFire, Payload: cell})
		}
		outs = append(outs, s.to(target.Other(), protocol.EventPlayerConnection, int(target))...)
		s.emit(Event{Kind: EventSlotReconnected, Slot: target, ReconnectCount: count, At: now})
		return outs, nil
	})
}

// Sync returns the authoritative turn state to the sender.
func (s *Session) Sync(connID string) error {
	return s.run(connID, func(slot SlotIndex, _ time.Time) ([]Outbound, error) {
		if slot == NoSlot {
			return nil, ErrUnknownConnection
		}
		return []Outbound{{ConnID: connID, Event: protocol.EventGameStateUpdate, Payload: s.stateUpdateLocked()}}, nil
	})
}

func (s *Session) Heartbeat(connID string) error {
	return s.run(connID, func(_ SlotIndex, now time.Time) ([]Outbound, error) {
		return []Outbound{{ConnID: connID, Event: protocol.EventHeartbeatResponse, Payload: protocol.HeartbeatResponse{
			ServerTime:       protocol.MillisOf(now),
			PlayersConnected: s.registry.ConnectedCount(),
			GameActive:       s.state.Active,
		}}}, nil
	})
}

func (s *Session) CheckPlayers(connID string) error {
	return s.run(connID, func(_ SlotIndex, _ time.Time) ([]Outbound, error) {
		var players [slotCount]protocol.PlayerStatus
		for i, slot := range s.registry.Slots() {
			players[i] = protocol.PlayerStatus{Connected: slot.Connected(), Ready: slot.Ready}
		}
		return []Outbound{{ConnID: connID, Event: protocol.EventCheckPlayers, Payload: players}}, nil
	})
}

func (s *Session) stateUpdateLocked() protocol.GameStateUpdate {
	return protocol.GameStateUpdate{
		CurrentTurn: int(s.state.CurrentTurn),
		GameActive:  s.state.Active,
		TurnHistory: WireHistory(s.turns.RecentHistory()),
	}
}
