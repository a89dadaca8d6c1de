package store

import "time"

type Match struct {
	ID         string
	StartedAt  time.Time
	EndedAt    *time.Time
	FirstMover int
	Winner     *int
	Turns      int
	EndReason  string
}

// Finished reports whether EndMatch has run for m.
func (m Match) Finished() bool { return m.EndedAt != nil }

type MatchTurn struct {
	MatchID string
	Seq     int
	Slot    int
	At      time.Time
}

type ConnectionEvent struct {
	ID             string
	MatchID        string
	Slot           int
	Kind           string
	Reason         string
	ReconnectCount int
	At             time.Time
}
