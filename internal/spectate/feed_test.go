package spectate

import (
	"testing"
	"time"

	"broadside/internal/match"
)

func TestFeedPublishesPublicFields(t *testing.T) {
	b := NewEventBuffer(10)
	f := NewFeed(b)
	at := time.UnixMilli(1_700_000_000_000)

	f.OnMatchEvent(match.Event{Kind: match.EventMatchStarted, MatchID: "m1", Turn: match.Slot1, At: at})
	f.OnMatchEvent(match.Event{Kind: match.EventTurnChanged, MatchID: "m1", Turn: match.Slot0, Seq: 2, At: at})
	f.OnMatchEvent(match.Event{Kind: match.EventMatchEnded, MatchID: "m1", Winner: match.NoSlot, Reason: match.ReasonAbandoned, At: at})

	evs := b.ReplayAfter("")
	if len(evs) != 3 {
		t.Fatalf("events = %d, want 3", len(evs))
	}
	started := evs[0].Data.(map[string]any)
	if evs[0].Event != "match_started" || started["first_mover"] != 1 || started["at"] != at.UnixMilli() {
		t.Fatalf("unexpected start event: %+v", evs[0])
	}
	turn := evs[1].Data.(map[string]any)
	if turn["turn"] != 0 || turn["seq"] != 2 {
		t.Fatalf("unexpected turn event: %+v", turn)
	}
	ended := evs[2].Data.(map[string]any)
	if w, ok := ended["winner"]; !ok || w != nil || ended["reason"] != "abandoned" {
		t.Fatalf("unexpected end event: %+v", ended)
	}
}

func TestFeedSkipsUnknownKinds(t *testing.T) {
	b := NewEventBuffer(10)
	NewFeed(b).OnMatchEvent(match.Event{Kind: "something_else"})
	if b.Len() != 0 {
		t.Fatalf("len = %d, want 0", b.Len())
	}
}
