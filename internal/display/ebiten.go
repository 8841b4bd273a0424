package display

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/session"
	"github.com/junsooki/EdgeCam/internal/site"
)

// Config configures an EbitenDisplay.
type Config struct {
	Title     string
	Original  FrameSource
	Processed FrameSource
	Controls  Controls
	Pump      Pump
	Scale     float64
	Logger    *slog.Logger
}

// pane holds the GPU image backing one half of the window.
type pane struct {
	src         FrameSource
	idle        *image.RGBA
	image       *ebiten.Image
	placeholder *ebiten.Image
}

// EbitenDisplay runs the loop on the window refresh and draws both surfaces.
type EbitenDisplay struct {
	cfg    Config
	logger *slog.Logger
	panes  [2]*pane

	retrying atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(cfg Config) (*EbitenDisplay, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Title == "" {
		cfg.Title = "EdgeCam Preview"
	}
	d := &EbitenDisplay{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("component", "display")),
	}
	for i, p := range []struct {
		src   FrameSource
		glyph site.Glyph
	}{
		{cfg.Original, site.GlyphCamera},
		{cfg.Processed, site.GlyphCPU},
	} {
		idle, err := site.Placeholder(capture.DefaultWidth, capture.DefaultHeight, p.glyph)
		if err != nil {
			return nil, err
		}
		d.panes[i] = &pane{src: p.src, idle: idle}
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	defer d.wait()
	w := int(float64(2*capture.DefaultWidth) * d.cfg.Scale)
	h := int(float64(capture.DefaultHeight) * d.cfg.Scale)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(d.cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

func (d *EbitenDisplay) wait() {
	d.cancel()
	d.wg.Wait()
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		d.press(ebiten.KeySpace)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		d.press(ebiten.KeyR)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return ebiten.Termination
	}
	if d.cfg.Pump != nil {
		d.cfg.Pump.RunPending()
	}
	return nil
}

// press handles a key outside of ebiten's input polling.
func (d *EbitenDisplay) press(k ebiten.Key) {
	switch k {
	case ebiten.KeySpace:
		on, err := d.cfg.Controls.Toggle()
		if err != nil {
			d.logger.Warn("toggle", slog.Any("error", err))
			return
		}
		d.logger.Info("processing toggled", slog.Bool("enabled", on))
	case ebiten.KeyR:
		if d.cfg.Controls.State().Camera != session.CameraUnavailable {
			return
		}
		if !d.retrying.CompareAndSwap(false, true) {
			return
		}
		// Opening the camera blocks; keep the window responsive.
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.retrying.Store(false)
			if err := d.cfg.Controls.Retry(d.ctx); err != nil {
				d.logger.Warn("camera retry", slog.Any("error", err))
			}
		}()
	}
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	st := d.cfg.Controls.State()
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()

	for i, r := range paneRects(sw, sh) {
		p := d.panes[i]
		img := p.frame(st.Processing)
		if img == nil {
			continue
		}
		fw, fh := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		scale, offsetX, offsetY := aspectFitTransform(float64(r.Dx()), float64(r.Dy()), fw, fh)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(float64(r.Min.X)+offsetX, float64(r.Min.Y)+offsetY)
		screen.DrawImage(img, op)
	}

	ebitenutil.DebugPrint(screen, hudText(st, d.retrying.Load()))
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// frame returns the image to draw: the surface while processing, the
// placeholder otherwise.
func (p *pane) frame(processing bool) *ebiten.Image {
	var src *image.RGBA
	if processing && p.src != nil {
		src = p.src.CurrentFrame()
	}
	if src == nil {
		if p.placeholder == nil {
			p.placeholder = ebiten.NewImageFromImage(p.idle)
		}
		return p.placeholder
	}

	if p.image == nil ||
		p.image.Bounds().Dx() != src.Bounds().Dx() ||
		p.image.Bounds().Dy() != src.Bounds().Dy() {
		p.image = ebiten.NewImage(src.Bounds().Dx(), src.Bounds().Dy())
	}
	p.image.WritePixels(src.Pix)
	return p.image
}

// paneRects splits the window into left and right halves.
func paneRects(w, h int) [2]image.Rectangle {
	mid := w / 2
	return [2]image.Rectangle{
		image.Rect(0, 0, mid, h),
		image.Rect(mid, 0, w, h),
	}
}

func hudText(st session.State, retrying bool) string {
	switch st.Camera {
	case session.CameraLoading:
		return "Opening camera..."
	case session.CameraUnavailable:
		if retrying {
			return "Camera Access Required\nRetrying..."
		}
		return "Camera Access Required\nPress R to retry camera access"
	}
	action := "Start Live Demo"
	if st.Processing {
		action = "Pause Processing"
	}
	return fmt.Sprintf("FPS: %d  Processing: %dms  %dx%d\n[Space] %s  [Esc] Quit",
		st.FPS, st.ProcessingMS, st.Width, st.Height, action)
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
