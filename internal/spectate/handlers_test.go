package spectate

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"broadside/internal/match"

	"github.com/go-chi/chi/v5"
)

func readEventName(t *testing.T, rd *bufio.Reader, timeout time.Duration) string {
	t.Helper()
	ch := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				errCh <- err
				return
			}
			if strings.HasPrefix(line, "event: ") {
				ch <- strings.TrimSpace(strings.TrimPrefix(line, "event: "))
				return
			}
		}
	}()
	select {
	case ev := <-ch:
		return ev
	case err := <-errCh:
		t.Fatalf("read event: %v", err)
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
	}
	return ""
}

func TestEventsHandlerReplaysThenStreams(t *testing.T) {
	prev := pingInterval
	pingInterval = 20 * time.Millisecond
	defer func() { pingInterval = prev }()

	buf := NewEventBuffer(10)
	buf.Append("slot_connected", "", map[string]any{"slot": 0})
	router := chi.NewRouter()
	router.Get("/api/public/spectate/events", EventsHandler(buf))
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/public/spectate/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	rd := bufio.NewReader(resp.Body)
	if ev := readEventName(t, rd, time.Second); ev != "slot_connected" {
		t.Fatalf("first event = %q", ev)
	}

	buf.Append("match_started", "m1", nil)
	for {
		ev := readEventName(t, rd, time.Second)
		if ev == "ping" {
			continue
		}
		if ev != "match_started" {
			t.Fatalf("streamed event = %q", ev)
		}
		break
	}
}

func TestEventsHandlerHonoursLastEventID(t *testing.T) {
	prev := pingInterval
	pingInterval = 20 * time.Millisecond
	defer func() { pingInterval = prev }()

	buf := NewEventBuffer(10)
	buf.Append("slot_connected", "", nil)
	buf.Append("player_ready", "", nil)
	server := httptest.NewServer(EventsHandler(buf))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ev := readEventName(t, bufio.NewReader(resp.Body), time.Second); ev != "player_ready" {
		t.Fatalf("first event = %q, want player_ready", ev)
	}
}

func TestClosingBufferLetsServerShutdown(t *testing.T) {
	buf := NewEventBuffer(10)
	server := httptest.NewServer(EventsHandler(buf))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	buf.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Config.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with open stream: %v", err)
	}

	rd := bufio.NewReader(resp.Body)
	for {
		if _, err := rd.ReadString('\n'); err != nil {
			break
		}
	}
}

type fixedSnapshot match.Snapshot

func (f fixedSnapshot) Snapshot() match.Snapshot { return match.Snapshot(f) }

func TestStateHandlerHidesCurrentTurnWhenIdle(t *testing.T) {
	rec := httptest.NewRecorder()
	StateHandler(fixedSnapshot{Phase: match.PhaseWaitingForPlayers})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["phase"] != "waiting_for_players" {
		t.Fatalf("phase = %v", body["phase"])
	}
	if v, ok := body["current_turn"]; !ok || v != nil {
		t.Fatalf("current_turn = %v", v)
	}
	if seats, ok := body["seats"].([]any); !ok || len(seats) != 2 {
		t.Fatalf("seats = %v", body["seats"])
	}
}

func TestPublicViewActiveMatch(t *testing.T) {
	snap := match.Snapshot{
		MatchID:     "m1",
		Phase:       match.PhaseActive,
		Active:      true,
		CurrentTurn: match.Slot1,
		Shots:       3,
		StartedAt:   time.UnixMilli(1000),
	}
	snap.Slots[1] = match.SlotView{Index: match.Slot1, Connected: true, Ready: true, Reconnects: 2}
	v := PublicView(snap)
	if v.CurrentTurn == nil || *v.CurrentTurn != 1 || v.StartedAt != 1000 || v.Shots != 3 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if !v.Seats[1].Ready || v.Seats[1].Reconnects != 2 {
		t.Fatalf("unexpected seat: %+v", v.Seats[1])
	}
}
