// Package spectate exposes a read-only view of the running match: a bounded
// event log with SSE fan-out and a public state snapshot.
package spectate

import (
	"strconv"
	"sync"
	"time"
)

type StreamEvent struct {
	EventID  string `json:"event_id"`
	Event    string `json:"event"`
	MatchID  string `json:"match_id,omitempty"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

const (
	defaultBufferSize = 500
	watcherBuffer     = 32
)

type logEntry struct {
	seq int64
	ev  StreamEvent
}

// EventBuffer keeps the last cap events and fans new ones out to
// subscribers. Slow subscribers miss events rather than stall Append.
type EventBuffer struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int64
	cap      int
	log      []logEntry
	watchers map[chan StreamEvent]struct{}
	closed   bool
}

func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &EventBuffer{
		now:      time.Now,
		cap:      capacity,
		log:      make([]logEntry, 0, capacity),
		watchers: make(map[chan StreamEvent]struct{}),
	}
}

// Append stamps the event with the next sequence id. It returns the zero
// event once the buffer is closed.
func (b *EventBuffer) Append(event, matchID string, data any) StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StreamEvent{}
	}
	b.seq++
	e := logEntry{seq: b.seq, ev: StreamEvent{
		EventID:  strconv.FormatInt(b.seq, 10),
		Event:    event,
		MatchID:  matchID,
		ServerTS: b.now().UnixMilli(),
		Data:     data,
	}}
	if len(b.log) == b.cap {
		copy(b.log, b.log[1:])
		b.log = b.log[:b.cap-1]
	}
	b.log = append(b.log, e)
	for w := range b.watchers {
		select {
		case w <- e.ev:
		default:
			metricEventsDropped.Add(1)
		}
	}
	return e.ev
}

// ReplayAfter returns buffered events newer than lastEventID. An empty or
// unparsable id replays everything still buffered.
func (b *EventBuffer) ReplayAfter(lastEventID string) []StreamEvent {
	after, err := strconv.ParseInt(lastEventID, 10, 64)
	if err != nil {
		after = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []StreamEvent
	for _, e := range b.log {
		if e.seq > after {
			out = append(out, e.ev)
		}
	}
	return out
}

func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.log)
}

// Subscribe returns a channel of future events. It is closed by Unsubscribe
// or Close; a subscription to a closed buffer starts closed.
func (b *EventBuffer) Subscribe() chan StreamEvent {
	w := make(chan StreamEvent, watcherBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(w)
	} else {
		b.watchers[w] = struct{}{}
	}
	return w
}

func (b *EventBuffer) Unsubscribe(w chan StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(w)
}

func (b *EventBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for w := range b.watchers {
		b.dropLocked(w)
	}
}

func (b *EventBuffer) dropLocked(w chan StreamEvent) {
	if _, ok := b.watchers[w]; ok {
		delete(b.watchers, w)
		close(w)
	}
}
