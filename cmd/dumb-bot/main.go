// Command dumb-bot plays the relay protocol with a random fleet and random
// shots. It is useful for soak testing a relay with one human player.
package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"broadside/internal/client"
	"broadside/internal/config"
	"broadside/internal/protocol"

	"github.com/charmbracelet/log"
)

const (
	boardCells = 100
	fleetCells = 17
	redialWait = 2 * time.Second
)

var (
	replyHit  = protocol.BoardClass(`["taken","boom"]`)
	replyMiss = protocol.BoardClass(`["empty","miss"]`)
)

type bot struct {
	cfg    config.BotConfig
	logger *log.Logger
	cancel context.CancelFunc

	mu      sync.Mutex
	rnd     *rand.Rand
	fleet   map[int]bool
	hits    int
	targets []int
	a       *client.Adapter
}

func newBot(cfg config.BotConfig, logger *log.Logger, cancel context.CancelFunc) *bot {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	b := &bot{cfg: cfg, logger: logger, cancel: cancel, rnd: rand.New(rand.NewSource(seed)), fleet: map[int]bool{}}
	for _, c := range b.rnd.Perm(boardCells)[:fleetCells] {
		b.fleet[c] = true
	}
	b.targets = b.rnd.Perm(boardCells)
	return b
}

func (b *bot) handler() client.Handler {
	return client.Handler{
		OnPlayerNumber: func(n int) {
			b.logger.Info("seated", "player", n)
			if err := b.a.Ready(); err != nil {
				b.logger.Warn("ready failed", "err", err)
			}
		},
		OnServerFull: func() {
			b.logger.Error("relay is full")
			b.cancel()
		},
		OnGameStarted: func(myTurn bool) {
			b.logger.Info("game started", "my_turn", myTurn)
			if myTurn {
				b.scheduleShot()
			}
		},
		OnTurnChanged: func(myTurn bool) {
			if myTurn {
				b.scheduleShot()
			}
		},
		OnIncomingShot: b.answer,
		OnShotResult: func(cell protocol.CellID, outcome protocol.BoardClass) {
			b.logger.Debug("shot result", "cell", cell, "outcome", string(outcome))
		},
		OnShotRejected: func(e protocol.ErrorPayload) {
			b.logger.Warn("shot rejected", "code", e.Code, "message", e.Message)
		},
		OnError: func(e protocol.ErrorPayload) {
			b.logger.Warn("relay error", "code", e.Code, "message", e.Message)
		},
		OnOpponentDisconnected: func(slot int) {
			b.logger.Info("opponent disconnected", "slot", slot)
		},
		OnReconnected: func(r protocol.ReconnectSuccess) {
			b.logger.Info("reconnected", "player", r.PlayerIndex, "count", r.ReconnectCount)
		},
		OnGameOver: func(winner int, won bool) {
			b.logger.Info("game over", "winner", winner, "won", won)
			b.cancel()
		},
		OnTimeout: func() {
			b.logger.Warn("session timed out")
			b.cancel()
		},
	}
}

func (b *bot) scheduleShot() {
	time.AfterFunc(b.cfg.ShotDelay, func() {
		b.mu.Lock()
		if len(b.targets) == 0 {
			b.mu.Unlock()
			return
		}
		cell := b.targets[0]
		b.targets = b.targets[1:]
		b.mu.Unlock()

		if err := b.a.Fire(protocol.CellID(strconv.Itoa(cell))); err != nil {
			b.logger.Warn("fire failed", "cell", cell, "err", err)
		}
	})
}

func (b *bot) answer(cell protocol.CellID) {
	n, _ := strconv.Atoi(string(cell))
	b.mu.Lock()
	hit := b.fleet[n]
	if hit {
		delete(b.fleet, n)
		b.hits++
	}
	sunk := b.hits == fleetCells
	b.mu.Unlock()

	outcome := replyMiss
	if hit {
		outcome = replyHit
	}
	if err := b.a.ReplyToShot(outcome); err != nil {
		b.logger.Warn("reply failed", "cell", cell, "err", err)
		return
	}
	if sunk {
		opponent := 1 - b.a.State().PlayerNum
		if err := b.a.ReportGameOver(opponent); err != nil {
			b.logger.Warn("game over report failed", "err", err)
		}
	}
}

// run keeps a connection open until ctx ends, redialing and asking for the
// old seat back after a drop.
func (b *bot) run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, err := client.Dial(ctx, b.cfg.WSURL)
		if err != nil {
			b.logger.Warn("dial failed", "url", b.cfg.WSURL, "err", err)
			sleep(ctx, redialWait)
			continue
		}
		conn.FrameErrors = func(err error) { b.logger.Warn("frame skipped", "err", err) }
		if b.a == nil {
			b.a = client.New(conn, b.handler())
		} else if err := b.a.Rebind(conn); err != nil {
			b.logger.Warn("reconnect request failed", "err", err)
		}

		hbCtx, stopHB := context.WithCancel(ctx)
		go b.heartbeat(hbCtx)
		err = conn.Run(ctx, b.a)
		stopHB()
		_ = conn.Close()
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		b.logger.Warn("connection lost", "err", err)
		sleep(ctx, redialWait)
	}
}

func (b *bot) heartbeat(ctx context.Context) {
	t := time.NewTicker(b.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := b.a.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "dumb-bot"})
	cfg, err := config.LoadBot()
	if err != nil {
		logger.Fatal("load bot config failed", "err", err)
	}
	if os.Getenv("BOT_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	newBot(cfg, logger, stop).run(ctx)
}
