package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/encoder"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

// Camera holds the capture and transform settings shared by both binaries.
type Camera struct {
	Device  int
	Width   int
	Height  int
	Refresh time.Duration
	Offset  float64
}

// Config holds runtime configuration for the web server.
type Config struct {
	InstanceID  string
	Addr        string
	ContentPath string
	Quality     int
	WebRTC      bool
	LogLevel    slog.Level
	Camera      Camera
}

// PreviewConfig holds configuration for the desktop preview.
type PreviewConfig struct {
	InstanceID string
	Scale      float64
	LogLevel   slog.Level
	Camera     Camera
}

// ParseServerFlags parses flags for the web server binary.
func ParseServerFlags() (*Config, error) {
	return parseServer(flag.CommandLine, nil)
}

// ParsePreviewFlags parses flags for the preview binary.
func ParsePreviewFlags() (*PreviewConfig, error) {
	return parsePreview(flag.CommandLine, nil)
}

func parseServer(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	var level string
	fs.StringVar(&cfg.InstanceID, "id", "", "Instance ID (auto-generated if empty)")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&cfg.ContentPath, "content", "", "Page content JSON file, reloaded on change (embedded default if empty)")
	fs.IntVar(&cfg.Quality, "quality", encoder.DefaultQuality, "JPEG quality for streamed surfaces (1-100)")
	fs.BoolVar(&cfg.WebRTC, "webrtc", true, "Accept WebRTC viewers over the websocket")
	fs.StringVar(&level, "log-level", "info", "Log level (debug, info, warn, error)")
	cameraFlags(fs, &cfg.Camera)
	if err := parse(fs, args); err != nil {
		return nil, err
	}

	var err error
	if cfg.LogLevel, err = parseLevel(level); err != nil {
		return nil, err
	}
	if err := cfg.Camera.validate(); err != nil {
		return nil, err
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = fmt.Sprintf("edgecam-%s", randomID())
	}
	return cfg, nil
}

func parsePreview(fs *flag.FlagSet, args []string) (*PreviewConfig, error) {
	cfg := &PreviewConfig{}
	var level string
	fs.StringVar(&cfg.InstanceID, "id", "", "Instance ID (auto-generated if empty)")
	fs.Float64Var(&cfg.Scale, "scale", 1, "Window scale factor")
	fs.StringVar(&level, "log-level", "info", "Log level (debug, info, warn, error)")
	cameraFlags(fs, &cfg.Camera)
	if err := parse(fs, args); err != nil {
		return nil, err
	}

	var err error
	if cfg.LogLevel, err = parseLevel(level); err != nil {
		return nil, err
	}
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", cfg.Scale)
	}
	if err := cfg.Camera.validate(); err != nil {
		return nil, err
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = fmt.Sprintf("preview-%s", randomID())
	}
	return cfg, nil
}

func cameraFlags(fs *flag.FlagSet, c *Camera) {
	fs.IntVar(&c.Device, "device", 0, "Camera device index (0 = default, usually front-facing)")
	fs.IntVar(&c.Width, "width", capture.DefaultWidth, "Requested capture width")
	fs.IntVar(&c.Height, "height", capture.DefaultHeight, "Requested capture height")
	fs.DurationVar(&c.Refresh, "refresh", pipeline.DefaultRefresh, "Refresh interval of the transform loop")
	fs.Float64Var(&c.Offset, "offset", threshold.DefaultOffset, "Luminosity distance from mid-gray that turns a pixel white")
}

func parse(fs *flag.FlagSet, args []string) error {
	if fs == flag.CommandLine && args == nil {
		flag.Parse()
		return nil
	}
	return fs.Parse(args)
}

func (c Camera) validate() error {
	if c.Device < 0 {
		return fmt.Errorf("device must be >= 0, got %d", c.Device)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Refresh <= 0 {
		return fmt.Errorf("refresh must be positive, got %v", c.Refresh)
	}
	if c.Offset <= 0 || c.Offset >= threshold.Midpoint {
		return fmt.Errorf("offset must be in (0, %d), got %v", threshold.Midpoint, c.Offset)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

func randomID() string {
	return uuid.NewString()[:8]
}
