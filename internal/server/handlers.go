package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/junsooki/EdgeCam/internal/session"
	"github.com/junsooki/EdgeCam/internal/site"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// A reload is the page's retry path.
	if s.sess.State().Camera == session.CameraUnavailable {
		if err := s.sess.Retry(r.Context()); err != nil {
			s.logger.Debug("camera retry on reload", slog.Any("error", err))
		}
	}

	var buf bytes.Buffer
	err := site.Render(&buf, site.Page{
		Content:    s.content.Content(),
		State:      s.sess.State(),
		InstanceID: s.cfg.InstanceID,
		WebRTC:     s.peers != nil,
	})
	if err != nil {
		s.logger.Error("render page", slog.Any("error", err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleArchitecture(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := site.RenderArchitecture(&buf, s.content.Content().Architecture.Layers); err != nil {
		s.logger.Error("render diagram", slog.Any("error", err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.State())
}

type processingRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleProcessing(w http.ResponseWriter, r *http.Request) {
	var req processingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sess.SetProcessing(req.Enabled); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.State())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sess.Toggle(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.State())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Retry(r.Context()); err != nil {
		s.logger.Warn("camera retry", slog.Any("error", err))
	}
	// The outcome is in the state either way.
	writeJSON(w, http.StatusOK, s.sess.State())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrCameraNotReady):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
