package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"masterhub/internal/config"
	"masterhub/internal/database"
	"masterhub/internal/handler"
	"masterhub/internal/notify"
	"masterhub/internal/service"
	"masterhub/internal/storage/memory"
	"masterhub/internal/storage/postgres"
	"masterhub/internal/worker"
)

type store interface {
	service.OrderRepository
	service.BidRepository
	service.AssignmentRepository
	service.PayoutRepository
	service.UserRepository
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	setupLogger(cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo store
	if cfg.DatabaseURI == "" {
		slog.Warn("no database configured, using in-memory storage")
		repo = memory.New()
	} else {
		db, err := database.NewDB(ctx, cfg.DatabaseURI)
		if err != nil {
			slog.Error("failed to connect to DB", "error", err)
			os.Exit(1)
		}
		defer database.CloseDB(db)

		if err := database.InitSchema(ctx, db); err != nil {
			slog.Error("failed to init DB schema", "error", err)
			os.Exit(1)
		}
		repo = postgres.NewStore(db)
	}

	// Events
	outbox, err := notify.OpenOutbox(cfg.Notify.OutboxDir)
	if err != nil {
		slog.Error("failed to open event outbox", "dir", cfg.Notify.OutboxDir, "error", err)
		os.Exit(1)
	}
	defer outbox.Close()

	sink, err := notify.NewSink(cfg.Notify.Driver, cfg.Notify.Brokers, cfg.Notify.Topic)
	if err != nil {
		slog.Error("failed to create event sink", "driver", cfg.Notify.Driver, "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	// Services
	authSvc := service.NewAuthService(repo)
	payoutSvc := service.NewPayoutService(repo, outbox, service.PayoutConfig{
		ServicePercent:        cfg.Payout.ServicePercent,
		DefaultPartnerPercent: cfg.Payout.DefaultPartnerPercent,
	})
	services := handler.Services{
		Auth:       authSvc,
		Orders:     service.NewOrderService(repo, outbox),
		Bids:       service.NewBidService(repo, outbox),
		Assignment: service.NewAssignmentService(repo, outbox, payoutSvc),
		Payouts:    payoutSvc,
		Balance:    service.NewBalanceService(repo),
	}

	if cfg.Admin.Login != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Login, cfg.Admin.Password); err != nil {
			slog.Error("failed to provision admin", "login", cfg.Admin.Login, "error", err)
			os.Exit(1)
		}
	}

	// Workers
	payoutWorker := worker.NewPayoutWorker(payoutSvc, cfg.Payout.WorkerInterval, cfg.Payout.WorkerBatchSize)
	broadcaster := notify.NewBroadcaster(outbox, sink, cfg.Notify.Interval, 0)
	go payoutWorker.Start(ctx)
	go broadcaster.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      handler.NewRouter(services, cfg.JWTSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop workers
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
