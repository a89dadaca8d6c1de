package spectate

import (
	"encoding/json"
	"net/http"
	"time"

	"broadside/internal/match"
	"broadside/internal/protocol"
)

var pingInterval = 15 * time.Second

func EventsHandler(buf *EventBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		SetSSEHeaders(w)
		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		// Subscribe before replaying so nothing falls between the two.
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		var lastID string
		for _, ev := range buf.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := WriteSSE(w, ev); err != nil {
				return
			}
			lastID = ev.EventID
		}
		flusher.Flush()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if lastID != "" && !newer(ev.EventID, lastID) {
					continue
				}
				if err := WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := StreamEvent{
					Event:    "ping",
					ServerTS: time.Now().UnixMilli(),
					Data:     map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// newer compares decimal event ids without parsing.
func newer(id, than string) bool {
	if len(id) != len(than) {
		return len(id) > len(than)
	}
	return id > than
}

// SnapshotSource is satisfied by *match.Session.
type SnapshotSource interface {
	Snapshot() match.Snapshot
}

type PublicSeat struct {
	Slot       int  `json:"slot"`
	Connected  bool `json:"connected"`
	Ready      bool `json:"ready"`
	InGrace    bool `json:"in_grace"`
	Reconnects int  `json:"reconnects"`
}

type PublicState struct {
	MatchID     string               `json:"match_id,omitempty"`
	Phase       string               `json:"phase"`
	Active      bool                 `json:"active"`
	CurrentTurn *int                 `json:"current_turn"`
	Shots       int                  `json:"shots"`
	StartedAt   int64                `json:"started_at,omitempty"`
	Seats       []PublicSeat         `json:"seats"`
	Recent      []protocol.TurnEntry `json:"recent_turns"`
}

func PublicView(snap match.Snapshot) PublicState {
	st := PublicState{
		MatchID: snap.MatchID,
		Phase:   snap.Phase.String(),
		Active:  snap.Active,
		Shots:   snap.Shots,
		Seats:   make([]PublicSeat, 0, len(snap.Slots)),
		Recent:  match.WireHistory(snap.RecentHistory),
	}
	if snap.Active {
		turn := int(snap.CurrentTurn)
		st.CurrentTurn = &turn
		st.StartedAt = protocol.MillisOf(snap.StartedAt)
	}
	for _, v := range snap.Slots {
		st.Seats = append(st.Seats, PublicSeat{
			Slot:       int(v.Index),
			Connected:  v.Connected,
			Ready:      v.Ready,
			InGrace:    v.InGrace,
			Reconnects: v.Reconnects,
		})
	}
	return st
}

func StateHandler(src SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PublicView(src.Snapshot()))
	}
}
