package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/config"
	httptransport "github.com/example/campus-bookings/internal/http"
	"github.com/example/campus-bookings/internal/logging"
	"github.com/example/campus-bookings/internal/persistence/sqlite"
)

func main() {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	bookingService := application.NewBookingService(store, store, idGenerator, now, logger)
	eventService := application.NewEventService(store, store, store, idGenerator, now, logger)
	authService := application.NewAuthService(store, store, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)
	userService := application.NewUserService(store, idGenerator, logger)

	if cfg.SeedData {
		if err := seed(ctx, logger, store, userService, eventService); err != nil {
			logger.Error("failed to seed development data", "error", err)
			os.Exit(1)
		}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Events:     httptransport.NewEventHandler(eventService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, logger),
		Sessions:   authService,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	go runSweeper(ctx, logger, bookingService, cfg.SweepInterval)

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

	logger.Info("booking API listening", "addr", server.Addr, "sweep_interval", cfg.SweepInterval.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type expirySweeper interface {
	SweepExpiredHolds(ctx context.Context) (application.SweepResult, error)
}

// runSweeper reclaims expired holds on a fixed interval until the context is
// cancelled.
func runSweeper(ctx context.Context, logger *slog.Logger, sweeper expirySweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := sweeper.SweepExpiredHolds(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "hold sweep failed", "error", err)
				continue
			}
			if result.ExpiredCount > 0 {
				logger.InfoContext(ctx, "expired holds reclaimed", "expired", result.ExpiredCount, "events", result.AffectedEvents)
			}
		}
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
