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

	"studybud/internal/config"
	"studybud/internal/db"
	"studybud/internal/logging"
	"studybud/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	if err := db.Init(cfg, logger); err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}

	svc, err := router.NewServices(db.DB, cfg, logger)
	if err != nil {
		logger.Error("service init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stopped by shutdown once the server has drained
	workerCtx, stopWorker := context.WithCancel(context.Background())
	scoresDone := make(chan struct{})
	go func() {
		svc.Scores.Run(workerCtx)
		close(scoresDone)
	}()

	r, err := router.New(cfg, db.DB, svc, logger)
	if err != nil {
		logger.Error("router init failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("StudyBud server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := shutdown(srv, stopWorker, scoresDone, 10*time.Second); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	if sqlDB, err := db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server stopped")
}

// shutdown stops accepting requests, waits for in-flight ones, and only then
// stops the score worker and waits for its final flush.
func shutdown(srv *http.Server, stopWorker context.CancelFunc, workerDone <-chan struct{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	stopWorker()
	<-workerDone
	return err
}
