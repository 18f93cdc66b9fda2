package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/config"
	httptransport "github.com/olgakorsuk5-lang/stonelibrary-bot/internal/http"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/logging"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/notify"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(logging.ParseLevel("info")).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.WithRetry(ctx, sqlite.DefaultRetryConfig(), func() error {
		return storage.Ping(ctx)
	}); err != nil {
		logger.Error("storage unreachable", "error", err)
		os.Exit(1)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	var notifier application.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.OversightChannel, cfg.NotifyTimeout)
	} else {
		logger.Warn("no notification webhook configured, using log sink")
		notifier = notify.NewLogNotifier(logger)
	}

	idGenerator := uuid.NewString
	now := time.Now

	reservationService := application.NewReservationService(storage, notifier, idGenerator, now, logger, cfg.NotifyTimeout)
	waitlistService := application.NewWaitlistService(storage, now, logger)
	holderService := application.NewHolderService(storage, now, logger)
	catalogService := application.NewCatalogService(storage, now, logger)

	scheduler := application.NewScheduler(storage, notifier, reservationService, now, logger, cfg.NotifyTimeout,
		application.SchedulerConfig{
			SweepInterval:   cfg.SweepInterval,
			ReminderHour:    cfg.ReminderHour,
			OverdueCooldown: cfg.OverdueCooldown,
			EscalationDelay: cfg.EscalationDelay,
		})
	go scheduler.Run(ctx)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Holders:      httptransport.NewHolderHandler(holderService, reservationService, logger),
		Catalog:      httptransport.NewCatalogHandler(catalogService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Waitlist:     httptransport.NewWaitlistHandler(waitlistService, logger),
		Health:       storage,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
			httptransport.RateLimit(rate.Limit(10), 20, logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
