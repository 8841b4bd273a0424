package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/config"
	"github.com/junsooki/EdgeCam/internal/display"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/session"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

func main() {
	cfg, err := config.ParsePreviewFlags()
	if err != nil {
		slog.Error("invalid flags", slog.Any("error", err))
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	logger.Info("EdgeCam preview starting",
		slog.String("instance", cfg.InstanceID),
		slog.Int("device", cfg.Camera.Device),
		slog.Duration("refresh", cfg.Camera.Refresh),
		slog.Float64("offset", cfg.Camera.Offset))

	src, err := capture.NewGoCVSource(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, logger)
	if err != nil {
		logger.Error("camera init", slog.Any("error", err))
		os.Exit(1)
	}

	// The loop steps once per window update.
	pump := pipeline.NewQueueScheduler()
	ebiten.SetTPS(tps(cfg.Camera.Refresh))

	sess := session.New(src, session.Options{
		Scheduler: pump,
		Filter:    threshold.New(cfg.Camera.Offset),
		Logger:    logger,
	})
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sess.Acquire(ctx); err != nil {
		logger.Warn("camera unavailable", slog.Any("error", err))
	}
	cancel()

	disp, err := display.NewEbitenDisplay(display.Config{
		Original:  sess.Original(),
		Processed: sess.Processed(),
		Controls:  sess,
		Pump:      pump,
		Scale:     cfg.Scale,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("display init", slog.Any("error", err))
		sess.Close()
		os.Exit(1)
	}
	if err := disp.Run(); err != nil {
		logger.Error("display", slog.Any("error", err))
	}
}

func tps(refresh time.Duration) int {
	n := int(time.Second / refresh)
	if n < 1 {
		return 1
	}
	return n
}
