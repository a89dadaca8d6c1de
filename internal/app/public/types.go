package public

import "time"

type MatchItem struct {
	MatchID    string     `json:"match_id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	FirstMover int        `json:"first_mover"`
	Winner     *int       `json:"winner"`
	Turns      int        `json:"turns"`
	EndReason  string     `json:"end_reason,omitempty"`
}

type MatchesResponse struct {
	Items []MatchItem `json:"items"`
	Limit int         `json:"limit"`
}

type TurnItem struct {
	Seq    int   `json:"seq"`
	Player int   `json:"player"`
	Time   int64 `json:"time"`
}

type ConnectionItem struct {
	Slot           int       `json:"slot"`
	Kind           string    `json:"kind"`
	Reason         string    `json:"reason,omitempty"`
	ReconnectCount int       `json:"reconnect_count,omitempty"`
	At             time.Time `json:"at"`
}

type MatchDetailResponse struct {
	Match       MatchItem        `json:"match"`
	Turns       []TurnItem       `json:"turns"`
	Connections []ConnectionItem `json:"connections"`
}
