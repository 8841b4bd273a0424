package config

import (
	"flag"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseServerDefaults(t *testing.T) {
	cfg, err := parseServer(flag.NewFlagSet("edgecam", flag.ContinueOnError), []string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" || cfg.Quality != 80 || !cfg.WebRTC {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 || cfg.Camera.Offset != 50 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Refresh != time.Second/60 {
		t.Errorf("refresh = %v", cfg.Camera.Refresh)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("level = %v", cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.InstanceID, "edgecam-") || len(cfg.InstanceID) != len("edgecam-")+8 {
		t.Errorf("instance id = %q", cfg.InstanceID)
	}
}

func TestParseServerFlags(t *testing.T) {
	args := []string{"-addr", "127.0.0.1:9000", "-id", "lab", "-offset", "30", "-log-level", "debug", "-webrtc=false", "-refresh", "33ms"}
	cfg, err := parseServer(flag.NewFlagSet("edgecam", flag.ContinueOnError), args)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.InstanceID != "lab" || cfg.WebRTC {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Camera.Offset != 30 || cfg.Camera.Refresh != 33*time.Millisecond {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("level = %v", cfg.LogLevel)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := [][]string{
		{"-device", "-1"},
		{"-width", "0"},
		{"-refresh", "0s"},
		{"-offset", "0"},
		{"-offset", "128"},
		{"-log-level", "loud"},
	}
	for _, args := range tests {
		if _, err := parseServer(flag.NewFlagSet("edgecam", flag.ContinueOnError), args); err == nil {
			t.Errorf("parseServer(%v) succeeded", args)
		}
	}
}

func TestParsePreview(t *testing.T) {
	cfg, err := parsePreview(flag.NewFlagSet("preview", flag.ContinueOnError), []string{"-scale", "1.5"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scale != 1.5 || !strings.HasPrefix(cfg.InstanceID, "preview-") {
		t.Errorf("cfg = %+v", cfg)
	}
	if _, err := parsePreview(flag.NewFlagSet("preview", flag.ContinueOnError), []string{"-scale", "0"}); err == nil {
		t.Error("zero scale accepted")
	}
}
