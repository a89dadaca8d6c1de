package matchpush

import (
	"context"
	"sync"
	"time"

	"broadside/internal/match"

	"github.com/rs/zerolog/log"
)

type job struct {
	msg     Message
	attempt int
}

// Notifier is a session observer that hands notable events to background
// workers. A full queue drops the notice.
type Notifier struct {
	cfg    Config
	sender Sender
	queue  chan job
	done   chan struct{}

	mu      sync.Mutex
	started bool
}

func NewNotifier(cfg Config, sender Sender) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if sender == nil {
		sender = NewDiscordWebhook(cfg.DiscordWebhook, cfg.RequestTimeout)
	}
	return &Notifier{
		cfg:    cfg,
		sender: sender,
		queue:  make(chan job, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

func (n *Notifier) Start(ctx context.Context) {
	if !n.cfg.Enabled {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	for i := 0; i < n.cfg.Workers; i++ {
		go n.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(n.done)
	}()
}

func (n *Notifier) OnMatchEvent(ev match.Event) {
	if !n.cfg.Enabled {
		return
	}
	msg, ok := Format(ev)
	if !ok {
		return
	}
	n.enqueue(job{msg: msg})
}

func (n *Notifier) enqueue(j job) {
	select {
	case n.queue <- j:
		metricQueuedTotal.Add(1)
		metricQueueLen.Set(int64(len(n.queue)))
	default:
		metricDroppedTotal.Add(1)
		log.Warn().Str("title", j.msg.Title).Msg("match_push_dropped")
	}
}

func (n *Notifier) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-n.queue:
			metricQueueLen.Set(int64(len(n.queue)))
			n.process(ctx, j)
		}
	}
}

func (n *Notifier) process(ctx context.Context, j job) {
	if err := n.sender.Send(ctx, j.msg); err != nil {
		metricFailedTotal.Add(1)
		log.Warn().Err(err).Int("attempt", j.attempt).Str("title", j.msg.Title).Msg("match_push_failed")
		n.retryOrDrop(j)
		return
	}
	metricSentTotal.Add(1)
}

func (n *Notifier) retryOrDrop(j job) {
	if j.attempt >= n.cfg.RetryMax {
		metricRetryDroppedTotal.Add(1)
		return
	}
	j.attempt++
	metricRetryTotal.Add(1)
	delay := n.cfg.RetryBase * time.Duration(1<<(j.attempt-1))
	time.AfterFunc(delay, func() {
		select {
		case <-n.done:
		case n.queue <- j:
		}
	})
}
