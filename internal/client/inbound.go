package client

import (
	"fmt"

	"broadside/internal/protocol"
)

// HandleFrame applies one server frame. Callbacks fire after the state is
// updated.
func (a *Adapter) HandleFrame(frame []byte) error {
	env, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	return a.HandleEnvelope(env)
}

func (a *Adapter) HandleEnvelope(env protocol.Envelope) error {
	var (
		notify []func()
		reply  []func() error
	)
	a.mu.Lock()
	err := a.applyLocked(env, &notify, &reply)
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", env.Event, err)
	}
	for _, fn := range notify {
		fn()
	}
	for _, fn := range reply {
		if err := fn(); err != nil {
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
	}
	return nil
}

func (a *Adapter) applyLocked(env protocol.Envelope, notify *[]func(), reply *[]func() error) error {
	h := a.h
	switch env.Event {
	case protocol.EventPlayerNumber:
		var n int
		if err := protocol.DecodeData(env, &n); err != nil {
			return err
		}
		if n == protocol.NoSlot {
			a.st.ServerFull = true
			if h.OnServerFull != nil {
				*notify = append(*notify, h.OnServerFull)
			}
			return nil
		}
		a.st.PlayerNum = n
		a.st.ServerFull = false
		if h.OnPlayerNumber != nil {
			*notify = append(*notify, func() { h.OnPlayerNumber(n) })
		}
		*reply = append(*reply, a.CheckPlayers)

	case protocol.EventPlayerConnection:
		// The frame only says a seat changed; ask for the full roster.
		*reply = append(*reply, a.CheckPlayers)

	case protocol.EventCheckPlayers:
		var players []protocol.PlayerStatus
		if err := protocol.DecodeData(env, &players); err != nil {
			return err
		}
		for i, p := range players {
			if i == a.st.PlayerNum {
				continue
			}
			a.st.EnemyConnected = p.Connected
			if p.Ready {
				a.st.EnemyReady = true
			}
		}
		if h.OnPlayers != nil {
			*notify = append(*notify, func() { h.OnPlayers(players) })
		}

	case protocol.EventEnemyReady:
		a.st.EnemyReady = true
		if h.OnEnemyReady != nil {
			*notify = append(*notify, h.OnEnemyReady)
		}

	case protocol.EventGameStarted:
		var first int
		if err := protocol.DecodeData(env, &first); err != nil {
			return err
		}
		a.st.Phase = PhaseActive
		a.st.MyTurn = first == a.st.PlayerNum
		a.st.Ready = true
		a.st.EnemyReady = true
		a.st.ShotPending = false
		a.st.PendingShot = ""
		a.st.HasIncoming = false
		a.st.Shots = 0
		a.st.Winner = protocol.NoSlot
		myTurn := a.st.MyTurn
		if h.OnGameStarted != nil {
			*notify = append(*notify, func() { h.OnGameStarted(myTurn) })
		}

	case protocol.EventUpdateTurn:
		var turn int
		if err := protocol.DecodeData(env, &turn); err != nil {
			return err
		}
		a.setTurnLocked(turn, notify)

	case protocol.EventFire:
		var cell protocol.CellID
		if err := protocol.DecodeData(env, &cell); err != nil {
			return err
		}
		if a.st.Phase == PhaseEnded {
			return nil
		}
		a.st.HasIncoming = true
		a.st.IncomingShot = cell
		if h.OnIncomingShot != nil {
			*notify = append(*notify, func() { h.OnIncomingShot(cell) })
		}

	case protocol.EventFireReply:
		if a.st.Phase == PhaseEnded {
			return nil
		}
		cell := a.st.PendingShot
		outcome := protocol.BoardClass(env.Data)
		a.st.ShotPending = false
		a.st.PendingShot = ""
		a.st.Shots++
		if h.OnShotResult != nil {
			*notify = append(*notify, func() { h.OnShotResult(cell, outcome) })
		}

	case protocol.EventError:
		var e protocol.ErrorPayload
		if err := protocol.DecodeData(env, &e); err != nil {
			return err
		}
		switch e.Code {
		case protocol.CodeTurnError:
			a.st.ShotPending = false
			a.st.PendingShot = ""
			if h.OnShotRejected != nil {
				*notify = append(*notify, func() { h.OnShotRejected(e) })
			}
			return nil
		case protocol.CodeSessionExpired:
			a.st.ConnectionLost = false
			a.resetToSetupLocked()
		}
		if h.OnError != nil {
			*notify = append(*notify, func() { h.OnError(e) })
		}

	case protocol.EventReconnectSuccess:
		var r protocol.ReconnectSuccess
		if err := protocol.DecodeData(env, &r); err != nil {
			return err
		}
		a.st.PlayerNum = r.PlayerIndex
		a.st.ConnectionLost = false
		a.st.ReconnectCount = r.ReconnectCount
		switch {
		case r.GameActive:
			a.st.Phase = PhaseActive
			a.st.MyTurn = r.CurrentTurn == r.PlayerIndex
			*reply = append(*reply, a.RequestSync)
		case a.st.Phase == PhaseActive:
			// The match was torn down while this seat was away.
			a.resetToSetupLocked()
		}
		if h.OnReconnected != nil {
			*notify = append(*notify, func() { h.OnReconnected(r) })
		}

	case protocol.EventGameStateUpdate:
		var u protocol.GameStateUpdate
		if err := protocol.DecodeData(env, &u); err != nil {
			return err
		}
		switch {
		case u.GameActive:
			if a.st.Phase != PhaseActive {
				a.st.Phase = PhaseActive
			}
			a.setTurnLocked(u.CurrentTurn, notify)
		case a.st.Phase == PhaseActive:
			a.resetToSetupLocked()
		}
		if h.OnSynced != nil {
			*notify = append(*notify, func() { h.OnSynced(u) })
		}

	case protocol.EventHeartbeatResponse:
		var hb protocol.HeartbeatResponse
		if err := protocol.DecodeData(env, &hb); err != nil {
			return err
		}
		if hb.GameActive && a.st.Ready && a.st.EnemyReady {
			*reply = append(*reply, a.RequestSync)
		}

	case protocol.EventOpponentDisconnected:
		var d protocol.OpponentDisconnected
		if err := protocol.DecodeData(env, &d); err != nil {
			return err
		}
		a.st.EnemyConnected = false
		if a.st.Phase != PhaseEnded && h.OnOpponentDisconnected != nil {
			*notify = append(*notify, func() { h.OnOpponentDisconnected(d.DisconnectedPlayer) })
		}

	case protocol.EventGameOver:
		var g protocol.GameOver
		if err := protocol.DecodeData(env, &g); err != nil {
			return err
		}
		if a.st.Phase == PhaseEnded {
			return nil
		}
		a.endLocked(g.Winner)
		won := g.Winner == a.st.PlayerNum
		if h.OnGameOver != nil {
			*notify = append(*notify, func() { h.OnGameOver(g.Winner, won) })
		}

	case protocol.EventTimeout:
		if h.OnTimeout != nil {
			*notify = append(*notify, h.OnTimeout)
		}
	}
	return nil
}

// setTurnLocked applies a server-authoritative turn. It wins over whatever
// the local mirror believed.
func (a *Adapter) setTurnLocked(turn int, notify *[]func()) {
	prev := a.st.MyTurn
	a.st.MyTurn = turn == a.st.PlayerNum
	if a.st.MyTurn != prev {
		a.st.ShotPending = false
		a.st.PendingShot = ""
	}
	if a.st.MyTurn != prev && a.st.Phase == PhaseActive && a.h.OnTurnChanged != nil {
		myTurn := a.st.MyTurn
		*notify = append(*notify, func() { a.h.OnTurnChanged(myTurn) })
	}
}
