package server

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/site"
)

const (
	streamBoundary = "frame"
	// idleRefresh bounds how long a stream takes to notice a toggle.
	idleRefresh = 500 * time.Millisecond
)

// handleStream serves surf as MJPEG. While processing is off the
// placeholder for glyph is sent instead.
func (s *Server) handleStream(surf *pipeline.Surface, glyph site.Glyph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "close")

		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(streamBoundary); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		flusher, _ := w.(http.Flusher)

		ticker := time.NewTicker(idleRefresh)
		defer ticker.Stop()

		var lastSeq uint64
		idle := false
		for {
			changed := surf.Changed()
			img, seq := surf.Current()
			live := img != nil && s.sess.State().Processing

			var data []byte
			switch {
			case live && seq != lastSeq:
				var err error
				if data, err = s.enc.Encode(img); err != nil {
					s.logger.Warn("encode frame", slog.Any("error", err))
					data = nil
				}
			case !live && !idle:
				data = s.placeholders[glyph]
			}

			if data != nil {
				if err := writePart(mw, s.enc.ContentType(), data); err != nil {
					s.logger.Debug("stream closed", slog.String("path", r.URL.Path), slog.Any("error", err))
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
				idle = !live
				lastSeq = 0
				if live {
					lastSeq = seq
				}
			}

			select {
			case <-r.Context().Done():
				return
			case <-s.ctx.Done():
				return
			case <-changed:
			case <-ticker.C:
			}
		}
	}
}

func writePart(mw *multipart.Writer, contentType string, data []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", fmt.Sprintf("%d", len(data)))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
