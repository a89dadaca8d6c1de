package match

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"broadside/internal/protocol"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	due     time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, due: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.due.After(target) {
				continue
			}
			if next == nil || t.due.Before(next.due) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.due.After(c.now) {
			c.now = next.due
		}
		c.mu.Unlock()
		next.fn()
	}
}

type recorder struct {
	mu     sync.Mutex
	frames map[string][]protocol.Envelope
	closed map[string]bool
}

func newRecorder() *recorder {
	return &recorder{frames: map[string][]protocol.Envelope{}, closed: map[string]bool{}}
}

func (r *recorder) Send(connID string, frame []byte) bool {
	env, err := protocol.Decode(frame)
	if err != nil {
		panic(fmt.Sprintf("undecodable frame %s: %v", frame, err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[connID] = append(r.frames[connID], env)
	return true
}

func (r *recorder) Close(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[connID] = true
}

func (r *recorder) events(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, env := range r.frames[connID] {
		out = append(out, env.Event)
	}
	return out
}

func (r *recorder) isClosed(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed[connID]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = map[string][]protocol.Envelope{}
}

// last returns the most recent frame of the given event sent to connID.
func (r *recorder) last(t *testing.T, connID, event string) protocol.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	frames := r.frames[connID]
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i]
		}
	}
	t.Fatalf("no %s frame for %s; got %v", event, connID, frames)
	return protocol.Envelope{}
}

func payload[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnMatchEvent(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}

type harness struct {
	s   *Session
	clk *fakeClock
	rec *recorder
	obs *eventLog
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	clk := newFakeClock()
	rec := newRecorder()
	obs := &eventLog{}
	ids := 0
	opts := Options{
		GracePeriod:       60 * time.Second,
		InactivityTimeout: 120 * time.Second,
		SessionTimeout:    30 * time.Minute,
		HistoryWindow:     5,
		Clock:             clk,
		NewID: func() string {
			ids++
			return fmt.Sprintf("match-%d", ids)
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	s := NewSession(rec, opts, obs)
	t.Cleanup(s.Close)
	return &harness{s: s, clk: clk, rec: rec, obs: obs}
}

// seat connects a and b into slots 0 and 1.
func (h *harness) seat(t *testing.T) {
	t.Helper()
	slot, err := h.s.Connect("a")
	require.NoError(t, err)
	require.Equal(t, Slot0, slot)
	slot, err = h.s.Connect("b")
	require.NoError(t, err)
	require.Equal(t, Slot1, slot)
}

// start seats both players, readies them and clears recorded frames.
func (h *harness) start(t *testing.T) {
	t.Helper()
	h.seat(t)
	require.NoError(t, h.s.Ready("a"))
	require.NoError(t, h.s.Ready("b"))
	h.rec.reset()
}

// exchange plays one full fire and reply from the current shooter.
func (h *harness) exchange(t *testing.T, shooter, defender string, cell protocol.CellID) {
	t.Helper()
	require.NoError(t, h.s.Fire(shooter, cell))
	require.NoError(t, h.s.Reply(defender, protocol.BoardClass(`["taken","boom"]`)))
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	b, err := protocol.Encode(event, data)
	require.NoError(t, err)
	return b
}
