// Package protocol defines the event-named JSON messages exchanged between
// browser clients and the relay server over a websocket.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

const Version = "1"

// Event names. Several names are used in both directions with different payloads.
const (
	EventPlayerNumber         = "player-number"
	EventPlayerConnection     = "player-connection"
	EventCheckPlayers         = "check-players"
	EventPlayerReady          = "player-ready"
	EventEnemyReady           = "enemy-ready"
	EventGameStarted          = "game-started"
	EventFire                 = "fire"
	EventFireReply            = "fire-reply"
	EventUpdateTurn           = "update-turn"
	EventError                = "error"
	EventReconnectAttempt     = "reconnect-attempt"
	EventReconnectSuccess     = "reconnect-success"
	EventSyncGameState        = "sync-game-state"
	EventGameStateUpdate      = "game-state-update"
	EventGameOver             = "game-over"
	EventOpponentDisconnected = "opponent-disconnected"
	EventHeartbeat            = "heartbeat"
	EventHeartbeatResponse    = "heartbeat-response"
	EventTimeout              = "timeout"
)

// Error codes carried in ErrorPayload.Code.
const (
	CodeTurnError       = "TURN_ERROR"
	CodeServerFull      = "SERVER_FULL"
	CodeSessionExpired  = "SESSION_EXPIRED"
	CodeUnexpectedReply = "UNEXPECTED_REPLY"
	CodeInvalidState    = "INVALID_STATE"
	CodeBadMessage      = "BAD_MESSAGE"
	CodeInternal        = "INTERNAL_ERROR"
)

// NoSlot is sent as the player number when the server is full.
const NoSlot = -1

var ErrEmptyEvent = errors.New("empty_event")

// Envelope is the single frame shape on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CellID identifies a target cell. The server treats it as opaque.
type CellID string

// UnmarshalJSON accepts both "42" and 42; the browser client sends dataset ids
// as strings but numeric ids are common in other clients.
func (c *CellID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = CellID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CellID(n.String())
	return nil
}

// BoardClass is the replying client's own classification of a shot cell. It is
// relayed byte-for-byte.
type BoardClass = json.RawMessage

type PlayerStatus struct {
	Connected bool `json:"connected"`
	Ready     bool `json:"ready"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ReconnectAttempt struct {
	PlayerNum int `json:"playerNum"`
}

type ReconnectSuccess struct {
	PlayerIndex    int  `json:"playerIndex"`
	CurrentTurn    int  `json:"currentTurn"`
	GameActive     bool `json:"gameActive"`
	ReconnectCount int  `json:"reconnectCount"`
}

type TurnEntry struct {
	Player int   `json:"player"`
	Time   int64 `json:"time"`
}

type GameStateUpdate struct {
	CurrentTurn int         `json:"currentTurn"`
	GameActive  bool        `json:"gameActive"`
	TurnHistory []TurnEntry `json:"turnHistory"`
}

type GameOver struct {
	Winner int `json:"winner"`
}

type OpponentDisconnected struct {
	DisconnectedPlayer int `json:"disconnectedPlayer"`
}

type HeartbeatResponse struct {
	ServerTime       int64 `json:"serverTime"`
	PlayersConnected int   `json:"playersConnected"`
	GameActive       bool  `json:"gameActive"`
}

// Encode builds a frame. A nil payload produces an event without data.
func Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, ErrEmptyEvent
	}
	env := Envelope{Event: event}
	if payload != nil {
		if raw, ok := payload.(json.RawMessage); ok {
			env.Data = raw
		} else {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			env.Data = data
		}
	}
	return json.Marshal(env)
}

// Decode parses a frame envelope; payload decoding is left to DecodeData.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v. Missing data is not an error.
func DecodeData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, v)
}

func MillisOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
