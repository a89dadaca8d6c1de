package match

import (
	"fmt"
	"time"

	"broadside/internal/protocol"
)

// Handle decodes one inbound frame from connID and runs the matching
// operation. Errors are already reported to the sender; the returned error is
// for logging.
func (s *Session) Handle(connID string, frame []byte) error {
	env, err := protocol.Decode(frame)
	if err != nil {
		return s.reject(connID, fmt.Errorf("%w: %v", ErrBadMessage, err))
	}
	switch env.Event {
	case protocol.EventPlayerReady:
		return s.Ready(connID)
	case protocol.EventFire:
		var cell protocol.CellID
		if err := protocol.DecodeData(env, &cell); err != nil || cell == "" {
			return s.reject(connID, ErrBadMessage)
		}
		return s.Fire(connID, cell)
	case protocol.EventFireReply:
		return s.Reply(connID, protocol.BoardClass(env.Data))
	case protocol.EventGameOver:
		var report protocol.GameOver
		if err := protocol.DecodeData(env, &report); err != nil {
			return s.reject(connID, ErrBadMessage)
		}
		return s.GameOver(connID, report)
	case protocol.EventReconnectAttempt:
		var req protocol.ReconnectAttempt
		if err := protocol.DecodeData(env, &req); err != nil {
			return s.reject(connID, ErrBadMessage)
		}
		return s.ReconnectAttempt(connID, req.PlayerNum)
	case protocol.EventSyncGameState:
		return s.Sync(connID)
	case protocol.EventHeartbeat:
		return s.Heartbeat(connID)
	case protocol.EventCheckPlayers:
		return s.CheckPlayers(connID)
	default:
		return s.reject(connID, fmt.Errorf("%w: unknown event %q", ErrBadMessage, env.Event))
	}
}

func (s *Session) reject(connID string, err error) error {
	return s.run(connID, func(SlotIndex, time.Time) ([]Outbound, error) {
		return nil, err
	})
}
