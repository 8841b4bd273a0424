package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/EdgeCam/internal/encoder"
	"github.com/junsooki/EdgeCam/internal/pipeline"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	ICEServers []webrtc.ICEServer
	// Surface is streamed to every connected viewer.
	Surface *pipeline.Surface
	Encoder encoder.Encoder
	// OnControl receives raw messages from viewers' control channels.
	OnControl func(viewerID string, data []byte)
	Logger    *slog.Logger
}

type entry struct {
	host   *Host
	cancel context.CancelFunc
}

// Manager owns one Host per viewer.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]entry
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		hosts:  make(map[string]entry),
	}
}

// HandleOffer answers an offer from viewerID, replacing any earlier
// connection from the same viewer, and starts streaming to it.
func (m *Manager) HandleOffer(viewerID string, sig Signaler, payload json.RawMessage) error {
	m.Remove(viewerID)

	h, err := NewHost(viewerID, sig, m.cfg.ICEServers, m.logger)
	if err != nil {
		return fmt.Errorf("create peer: %w", err)
	}
	if m.cfg.OnControl != nil {
		h.Transport().OnControl(func(data []byte) {
			m.cfg.OnControl(viewerID, data)
		})
	}
	if err := h.HandleOffer(payload); err != nil {
		h.Close()
		return fmt.Errorf("answer offer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if m.cfg.Surface != nil && m.cfg.Encoder != nil {
		go h.Stream(ctx, m.cfg.Surface, m.cfg.Encoder)
	}

	m.mu.Lock()
	m.hosts[viewerID] = entry{host: h, cancel: cancel}
	m.mu.Unlock()
	return nil
}

// HandleICECandidate forwards a remote candidate to viewerID's connection.
func (m *Manager) HandleICECandidate(viewerID string, payload json.RawMessage) error {
	m.mu.Lock()
	e, ok := m.hosts[viewerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no peer for viewer %s", viewerID)
	}
	return e.host.HandleICECandidate(payload)
}

// Remove closes viewerID's connection, if any.
func (m *Manager) Remove(viewerID string) {
	m.mu.Lock()
	e, ok := m.hosts[viewerID]
	delete(m.hosts, viewerID)
	m.mu.Unlock()
	if ok {
		e.cancel()
		e.host.Close()
	}
}

// Count returns the number of live viewer connections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts)
}

// Close closes every connection.
func (m *Manager) Close() {
	m.mu.Lock()
	hosts := m.hosts
	m.hosts = make(map[string]entry)
	m.mu.Unlock()
	for _, e := range hosts {
		e.cancel()
		e.host.Close()
	}
}
