package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apppublic "broadside/internal/app/public"
	"broadside/internal/app/status"
	"broadside/internal/config"
	"broadside/internal/logging"
	"broadside/internal/match"
	"broadside/internal/matchpush"
	"broadside/internal/mcpserver"
	"broadside/internal/spectate"
	"broadside/internal/store"
	httptransport "broadside/internal/transport/http"
	"broadside/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server
	firstMover, err := match.ParseFirstMover(cfg.FirstMover)
	if err != nil {
		log.Fatal().Err(err).Str("first_mover", cfg.FirstMover).Msg("invalid first mover policy")
	}
	pushCfg, err := matchpush.ConfigFromServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("match push config invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bgCtx, cancelBg := context.WithCancel(context.Background())

	var (
		st        *store.Store
		recorder  *store.Recorder
		history   apppublic.HistoryReader
		observers []match.Observer
		statusOpt = status.Options{Production: cfg.IsProduction(), StartedAt: time.Now()}
	)
	if cfg.PostgresDSN != "" {
		st, err = store.New(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		recorder = store.NewRecorder(st, 0)
		go recorder.Run(bgCtx)
		history = st
		observers = append(observers, recorder)
		statusOpt.Recorder = recorder
	} else {
		log.Warn().Msg("POSTGRES_DSN unset, match history disabled")
	}

	buf := spectate.NewEventBuffer(0)
	observers = append(observers, spectate.NewFeed(buf))

	notifier := matchpush.NewNotifier(pushCfg, nil)
	notifier.Start(bgCtx)
	observers = append(observers, notifier)

	hub := ws.NewServer(ws.Options{
		PingInterval: cfg.WSPingInterval,
		PongWait:     cfg.WSPongWait,
	})
	sess := match.NewSession(hub, match.Options{
		GracePeriod:       cfg.GracePeriod,
		InactivityTimeout: cfg.InactivityTimeout,
		SessionTimeout:    cfg.SessionTimeout,
		HistoryWindow:     cfg.TurnHistoryWindow,
		FirstMover:        firstMover,
		NewID:             store.NewID,
	}, observers...)
	hub.Bind(sess)
	sess.StartJanitor(bgCtx, cfg.SweepInterval)

	statusSvc := status.NewService(sess, hub, statusOpt)
	publicSvc := apppublic.NewService(history)
	r := httptransport.NewRouter(httptransport.Deps{
		Config:   cfg,
		Hub:      hub,
		Status:   statusSvc,
		Public:   publicSvc,
		Session:  sess,
		Spectate: buf,
		MCP:      mcpserver.New(statusSvc, publicSvc),
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown_requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Open spectator streams only end when their buffer closes.
	buf.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	hub.Shutdown()
	sess.Close()
	cancelBg()
	if recorder != nil {
		recorder.Wait()
	}
	if st != nil {
		st.Close()
	}
	log.Info().Msg("shutdown_complete")
}
