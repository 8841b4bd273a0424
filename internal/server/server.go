// Package server exposes the session over HTTP: the landing page, MJPEG
// streams of both surfaces, a small JSON control API and the websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/control"
	"github.com/junsooki/EdgeCam/internal/encoder"
	"github.com/junsooki/EdgeCam/internal/peer"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/session"
	"github.com/junsooki/EdgeCam/internal/signaling"
	"github.com/junsooki/EdgeCam/internal/site"
)

// DefaultStateInterval is how often page clients receive fresh metrics.
const DefaultStateInterval = 500 * time.Millisecond

// Session is the part of session.Session the server drives.
type Session interface {
	control.Target
	State() session.State
	Subscribe(fn func(session.Event)) func()
	Original() *pipeline.Surface
	Processed() *pipeline.Surface
}

// Config configures a Server.
type Config struct {
	InstanceID    string
	Session       Session
	Content       *site.Store
	Encoder       encoder.Encoder
	WebRTC        bool
	ICEServers    []webrtc.ICEServer
	StateInterval time.Duration
	Logger        *slog.Logger
}

// Server serves one session to any number of pages.
type Server struct {
	cfg     Config
	sess    Session
	content *site.Store
	enc     encoder.Encoder
	hub     *signaling.Hub
	peers   *peer.Manager
	logger  *slog.Logger
	mux     *http.ServeMux

	placeholders map[site.Glyph][]byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()
}

// New creates a Server and starts pushing state to page clients.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("server: nil session")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = encoder.NewJPEGEncoder(encoder.DefaultQuality)
	}
	if cfg.Content == nil {
		store, err := site.NewStore("", cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Content = store
	}
	if cfg.StateInterval <= 0 {
		cfg.StateInterval = DefaultStateInterval
	}
	if cfg.ICEServers == nil {
		cfg.ICEServers = peer.ICEServers
	}

	s := &Server{
		cfg:     cfg,
		sess:    cfg.Session,
		content: cfg.Content,
		enc:     cfg.Encoder,
		logger:  cfg.Logger.With(slog.String("component", "server")),
		mux:     http.NewServeMux(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.renderPlaceholders(); err != nil {
		return nil, err
	}

	if cfg.WebRTC {
		s.peers = peer.NewManager(peer.ManagerConfig{
			ICEServers: cfg.ICEServers,
			Surface:    s.sess.Processed(),
			Encoder:    encoder.NewJPEGEncoder(peerQuality),
			OnControl:  s.peerCommand,
			Logger:     cfg.Logger,
		})
	}
	s.hub = signaling.NewHub(signaling.Handler{
		OnConnect:      s.clientConnected,
		OnCommand:      s.clientCommand,
		OnOffer:        s.clientOffer,
		OnICECandidate: s.clientICECandidate,
		OnDisconnect:   s.clientDisconnected,
	}, cfg.Logger)

	s.routes()

	s.unsub = s.sess.Subscribe(s.sessionEvent)
	s.wg.Add(1)
	go s.pushState()
	return s, nil
}

// peerQuality is lower than the MJPEG quality so frames fit one data
// channel message.
const peerQuality = 60

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /stream/original", s.handleStream(s.sess.Original(), site.GlyphCamera))
	s.mux.HandleFunc("GET /stream/processed", s.handleStream(s.sess.Processed(), site.GlyphCPU))
	s.mux.HandleFunc("GET /architecture.png", s.handleArchitecture)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/processing", s.handleProcessing)
	s.mux.HandleFunc("POST /api/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /api/camera/retry", s.handleRetry)
	s.mux.Handle("GET /ws", s.hub)
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(site.Static())))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close disconnects every client and stops the state pusher. Streams still
// being served end with their requests.
func (s *Server) Close() {
	s.cancel()
	s.unsub()
	s.hub.Close()
	if s.peers != nil {
		s.peers.Close()
	}
	s.wg.Wait()
}

func (s *Server) renderPlaceholders() error {
	s.placeholders = make(map[site.Glyph][]byte)
	for _, g := range []site.Glyph{site.GlyphCamera, site.GlyphCPU} {
		img, err := site.Placeholder(capture.DefaultWidth, capture.DefaultHeight, g)
		if err != nil {
			return err
		}
		data, err := s.enc.Encode(img)
		if err != nil {
			return err
		}
		s.placeholders[g] = data
	}
	return nil
}

func (s *Server) pushState() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.StateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.hub.Count() == 0 {
				continue
			}
			st := s.sess.State()
			s.hub.Broadcast(signaling.Message{Type: signaling.TypeState, State: &st})
		}
	}
}

func (s *Server) sessionEvent(ev session.Event) {
	st := ev.State
	s.hub.Broadcast(signaling.Message{Type: signaling.TypeState, State: &st})
	if ev.Notice != nil {
		s.hub.Broadcast(signaling.Message{Type: signaling.TypeNotice, Notice: ev.Notice})
	}
}

func (s *Server) clientConnected(c *signaling.Client) {
	st := s.sess.State()
	_ = c.Send(signaling.Message{Type: signaling.TypeState, State: &st})
}

func (s *Server) clientCommand(c *signaling.Client, cmd control.Command) {
	if err := control.Apply(s.ctx, s.sess, cmd); err != nil {
		s.logger.Warn("command failed", slog.String("client", c.ID()), slog.String("command", string(cmd.Type)), slog.Any("error", err))
		_ = c.SendError(err.Error())
	}
}

func (s *Server) peerCommand(viewerID string, data []byte) {
	cmd, err := control.Decode(data)
	if err != nil {
		s.logger.Warn("bad control message", slog.String("viewer", viewerID), slog.Any("error", err))
		return
	}
	if err := control.Apply(s.ctx, s.sess, cmd); err != nil {
		s.logger.Warn("command failed", slog.String("viewer", viewerID), slog.String("command", string(cmd.Type)), slog.Any("error", err))
	}
}

func (s *Server) clientOffer(c *signaling.Client, payload json.RawMessage) {
	if s.peers == nil {
		_ = c.SendError("webrtc disabled")
		return
	}
	if err := s.peers.HandleOffer(c.ID(), c, payload); err != nil {
		s.logger.Warn("offer failed", slog.String("client", c.ID()), slog.Any("error", err))
		_ = c.SendError(err.Error())
	}
}

func (s *Server) clientICECandidate(c *signaling.Client, payload json.RawMessage) {
	if s.peers == nil {
		return
	}
	if err := s.peers.HandleICECandidate(c.ID(), payload); err != nil {
		s.logger.Debug("ice candidate", slog.String("client", c.ID()), slog.Any("error", err))
	}
}

func (s *Server) clientDisconnected(c *signaling.Client) {
	if s.peers != nil {
		s.peers.Remove(c.ID())
	}
}
