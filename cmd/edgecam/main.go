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

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/config"
	"github.com/junsooki/EdgeCam/internal/encoder"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/server"
	"github.com/junsooki/EdgeCam/internal/session"
	"github.com/junsooki/EdgeCam/internal/site"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

func main() {
	cfg, err := config.ParseServerFlags()
	if err != nil {
		slog.Error("invalid flags", slog.Any("error", err))
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	logger.Info("EdgeCam starting",
		slog.String("instance", cfg.InstanceID),
		slog.String("addr", cfg.Addr),
		slog.Int("device", cfg.Camera.Device),
		slog.Int("width", cfg.Camera.Width),
		slog.Int("height", cfg.Camera.Height),
		slog.Duration("refresh", cfg.Camera.Refresh),
		slog.Float64("offset", cfg.Camera.Offset),
		slog.Bool("webrtc", cfg.WebRTC))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Camera.
	src, err := capture.NewGoCVSource(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, logger)
	if err != nil {
		logger.Error("camera init", slog.Any("error", err))
		os.Exit(1)
	}

	sess := session.New(src, session.Options{
		Scheduler: pipeline.NewTimerScheduler(cfg.Camera.Refresh),
		Filter:    threshold.New(cfg.Camera.Offset),
		Logger:    logger,
	})
	defer sess.Close()

	// An unavailable camera is not fatal: the page shows the fallback card.
	if err := sess.Acquire(ctx); err != nil {
		logger.Warn("camera unavailable, serving fallback", slog.Any("error", err))
	}

	// Page copy.
	content, err := site.NewStore(cfg.ContentPath, logger)
	if err != nil {
		logger.Error("content", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		if err := content.Watch(ctx); err != nil {
			logger.Warn("content watch stopped", slog.Any("error", err))
		}
	}()

	srv, err := server.New(server.Config{
		InstanceID: cfg.InstanceID,
		Session:    sess,
		Content:    content,
		Encoder:    encoder.NewJPEGEncoder(cfg.Quality),
		WebRTC:     cfg.WebRTC,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("server init", slog.Any("error", err))
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
		}
	}

	logger.Info("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.Any("error", err))
	}
}
