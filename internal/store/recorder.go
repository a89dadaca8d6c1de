package store

import (
	"context"
	"sync/atomic"
	"time"

	"broadside/internal/match"

	"github.com/rs/zerolog/log"
)

// HistoryWriter is the subset of Store the recorder writes through.
type HistoryWriter interface {
	CreateMatch(ctx context.Context, id string, firstMover int, startedAt time.Time) error
	AppendTurn(ctx context.Context, t MatchTurn) error
	RecordConnectionEvent(ctx context.Context, ev ConnectionEvent) error
	EndMatch(ctx context.Context, id string, winner *int, reason string, endedAt time.Time) error
}

const (
	defaultRecorderBuffer = 1024
	writeTimeout          = 5 * time.Second
)

// Recorder persists session events from a single worker goroutine.
// OnMatchEvent never blocks: when the queue is full the event is dropped and
// counted.
type Recorder struct {
	w       HistoryWriter
	queue   chan match.Event
	done    chan struct{}
	stopped atomic.Bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewRecorder(w HistoryWriter, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	return &Recorder{
		w:     w,
		queue: make(chan match.Event, buffer),
		done:  make(chan struct{}),
	}
}

func (r *Recorder) OnMatchEvent(ev match.Event) {
	if !recordable(ev.Kind) || r.stopped.Load() {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
		log.Warn().Str("kind", string(ev.Kind)).Str("match_id", ev.MatchID).Msg("history_event_dropped")
	}
}

// Run drains the queue until ctx is done, then writes whatever is still
// queued before returning.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case ev := <-r.queue:
			r.write(ev)
		case <-ctx.Done():
			r.stopped.Store(true)
			for {
				select {
				case ev := <-r.queue:
					r.write(ev)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() { <-r.done }

type RecorderStats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"`
}

func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
		Queued:  len(r.queue),
	}
}

func recordable(k match.EventKind) bool {
	switch k {
	case match.EventMatchStarted, match.EventTurnChanged, match.EventMatchEnded,
		match.EventSlotConnected, match.EventSlotDisconnected, match.EventSlotReconnected, match.EventSlotReleased:
		return true
	}
	return false
}

func (r *Recorder) write(ev match.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case match.EventMatchStarted:
		err = r.w.CreateMatch(ctx, ev.MatchID, int(ev.Turn), ev.At)
		if err == nil {
			// The opening turn is history entry zero.
			err = r.w.AppendTurn(ctx, MatchTurn{MatchID: ev.MatchID, Seq: 0, Slot: int(ev.Turn), At: ev.At})
		}
	case match.EventTurnChanged:
		err = r.w.AppendTurn(ctx, MatchTurn{MatchID: ev.MatchID, Seq: ev.Seq - 1, Slot: int(ev.Turn), At: ev.At})
	case match.EventMatchEnded:
		var winner *int
		if ev.Winner.Valid() {
			w := int(ev.Winner)
			winner = &w
		}
		err = r.w.EndMatch(ctx, ev.MatchID, winner, ev.Reason, ev.At)
	default:
		err = r.w.RecordConnectionEvent(ctx, ConnectionEvent{
			MatchID:        ev.MatchID,
			Slot:           int(ev.Slot),
			Kind:           string(ev.Kind),
			Reason:         ev.Reason,
			ReconnectCount: ev.ReconnectCount,
			At:             ev.At,
		})
	}
	if err != nil {
		r.failed.Add(1)
		log.Error().Err(err).Str("kind", string(ev.Kind)).Str("match_id", ev.MatchID).Msg("history_write_failed")
		return
	}
	r.written.Add(1)
}
