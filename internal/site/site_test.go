package site

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/junsooki/EdgeCam/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultContent(t *testing.T) {
	c := Default()
	if len(c.Architecture.Layers) != 5 {
		t.Errorf("layers = %d, want 5", len(c.Architecture.Layers))
	}
	if len(c.Features.Items) != 8 {
		t.Errorf("features = %d, want 8", len(c.Features.Items))
	}
	if c.Hero.Source != "WebCam" {
		t.Errorf("hero source = %q", c.Hero.Source)
	}
}

func TestParseRejectsInvalidContent(t *testing.T) {
	tests := map[string]string{
		"not json":       "{",
		"no title":       `{"architecture":{"layers":[{"title":"a"}]}}`,
		"no layers":      `{"title":"x"}`,
		"untitled layer": `{"title":"x","architecture":{"layers":[{"description":"d"}]}}`,
	}
	for name, data := range tests {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func writeContent(t *testing.T, path, title string) {
	t.Helper()
	c := Default()
	c.Title = title
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	writeContent(t, path, "first")

	s, err := NewStore(path, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if s.Content().Title != "first" {
		t.Fatalf("title = %q", s.Content().Title)
	}

	writeContent(t, path, "second")
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if s.Content().Title != "second" || s.Version() != 1 {
		t.Errorf("title=%q version=%d", s.Content().Title, s.Version())
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Error("invalid content accepted")
	}
	if s.Content().Title != "second" {
		t.Errorf("title after bad reload = %q", s.Content().Title)
	}
}

func TestStoreMissingFile(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "missing.json"), quietLogger()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStoreWatchPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	writeContent(t, path, "before")
	s, err := NewStore(path, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Content().Title != "after" {
		if time.Now().After(deadline) {
			t.Fatal("watch did not reload")
		}
		writeContent(t, path, "after")
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch: %v", err)
	}
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Page{
		Content:    Default(),
		State:      session.State{Camera: session.CameraReady, FPS: 42, ProcessingMS: 3},
		InstanceID: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{
		"Real-Time Computer Vision",
		"Start Live Demo",
		"/stream/original",
		"/stream/processed",
		">42<",
		"3ms",
		"Complete Architecture",
		"Implementation Highlights",
		"Assessment Project",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "Camera Access Required") {
		t.Error("fallback shown with a ready camera")
	}
}

func TestRenderFallback(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Page{State: session.State{Camera: session.CameraUnavailable}})
	if err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	if !strings.Contains(html, "Camera Access Required") || !strings.Contains(html, "Retry Camera Access") {
		t.Error("fallback card missing")
	}
	if strings.Contains(html, "/stream/processed") {
		t.Error("streams shown while camera unavailable")
	}
}

func TestRenderProcessingLabel(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Page{State: session.State{Camera: session.CameraReady, Processing: true}})
	if !strings.Contains(buf.String(), "Pause Processing") {
		t.Error("pause label missing while processing")
	}
}

func TestRenderArchitecture(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderArchitecture(&buf, Default().Architecture.Layers); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != DiagramWidth || b.Dy() != DiagramHeight {
		t.Errorf("size = %v", b)
	}
}

func TestPlaceholder(t *testing.T) {
	for _, g := range []Glyph{GlyphCamera, GlyphCPU} {
		img, err := Placeholder(320, 240, g)
		if err != nil {
			t.Fatalf("glyph %d: %v", g, err)
		}
		if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
			t.Errorf("glyph %d size = %v", g, b)
		}
	}
}

func TestPlaceholderUnknownGlyph(t *testing.T) {
	if _, err := Placeholder(320, 240, Glyph(99)); err == nil {
		t.Error("unknown glyph accepted")
	}
}

func TestGradient(t *testing.T) {
	tests := map[string]string{
		"#111,#222222": "linear-gradient(135deg, #111, #222222)",
		"#00bfff":      "#00bfff",
		"red;x":        "#00bfff",
		"#12345g":      "#00bfff",
	}
	for in, want := range tests {
		if got := string(gradient(in)); got != want {
			t.Errorf("gradient(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	for _, name := range []string{"app.js", "style.css"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
