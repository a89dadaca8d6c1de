package status

import (
	"time"

	"broadside/internal/protocol"
	"broadside/internal/store"
	"broadside/internal/ws"
)

type HealthResponse struct {
	Status       string     `json:"status"`
	Players      int        `json:"players"`
	Uptime       float64    `json:"uptime"`
	GameActive   bool       `json:"gameActive"`
	CurrentTurn  *int       `json:"currentTurn"`
	LastActivity [2]*string `json:"lastActivity"`
}

type SeatStatus struct {
	Slot           int        `json:"slot"`
	Connected      bool       `json:"connected"`
	Occupied       bool       `json:"occupied"`
	Ready          bool       `json:"ready"`
	InGrace        bool       `json:"in_grace"`
	GraceDeadline  *time.Time `json:"grace_deadline,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	Reconnects     int        `json:"reconnects"`
}

type RosterResponse struct {
	Phase   string       `json:"phase"`
	Seats   []SeatStatus `json:"seats"`
	Pending int          `json:"pending"`
}

type TurnHistoryResponse struct {
	MatchID     string               `json:"match_id,omitempty"`
	Active      bool                 `json:"active"`
	CurrentTurn *int                 `json:"current_turn"`
	Window      string               `json:"window"`
	Turns       []protocol.TurnEntry `json:"turns"`
}

type DebugSeat struct {
	SeatStatus
	ConnectionID   string     `json:"connection_id"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

type DebugState struct {
	MatchID          string               `json:"match_id,omitempty"`
	Phase            string               `json:"phase"`
	Active           bool                 `json:"active"`
	CurrentTurn      int                  `json:"current_turn"`
	FirstMover       int                  `json:"first_mover"`
	StartedAt        *time.Time           `json:"started_at,omitempty"`
	LastTurnChangeAt *time.Time           `json:"last_turn_change_at,omitempty"`
	Shots            int                  `json:"shots"`
	ShotPending      bool                 `json:"shot_pending"`
	Seats            []DebugSeat          `json:"seats"`
	TurnHistory      []protocol.TurnEntry `json:"turn_history"`
	Pending          int                  `json:"pending_connections"`
	Timers           []string             `json:"timers"`
	Transport        ws.Stats             `json:"transport"`
	History          *store.RecorderStats `json:"history,omitempty"`
	TakenAt          time.Time            `json:"taken_at"`
}
