// Package signaling runs the page websocket: it pushes state and notices to
// every open page, accepts start/pause commands and relays WebRTC offers,
// answers and ICE candidates.
package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/junsooki/EdgeCam/internal/control"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

// ErrClientClosed is returned when sending to a disconnected client.
var ErrClientClosed = errors.New("client closed")

// Handler callbacks for incoming client messages. Any may be nil.
type Handler struct {
	OnConnect      func(c *Client)
	OnCommand      func(c *Client, cmd control.Command)
	OnOffer        func(c *Client, payload json.RawMessage)
	OnICECandidate func(c *Client, payload json.RawMessage)
	OnDisconnect   func(c *Client)
}

// Hub tracks connected pages.
type Hub struct {
	upgrader websocket.Upgrader
	handler  Handler
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// NewHub creates a Hub dispatching to handler.
func NewHub(handler Handler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		handler:  handler,
		logger:   logger.With(slog.String("component", "signaling")),
		clients:  make(map[string]*Client),
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("client connected", slog.String("client", c.id), slog.String("remote", r.RemoteAddr))

	if err := c.Send(Message{Type: TypeRegistered, ID: c.id}); err != nil {
		h.drop(c)
		return
	}
	if h.handler.OnConnect != nil {
		h.handler.OnConnect(c)
	}

	go c.pingLoop()
	h.readLoop(c)
}

func (h *Hub) readLoop(c *Client) {
	defer h.drop(c)
	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", slog.String("client", c.id), slog.Any("error", err))
			}
			return
		}
		h.dispatch(c, msg)
	}
}

func (h *Hub) dispatch(c *Client, msg Message) {
	switch msg.Type {
	case TypeToggle:
		h.command(c, control.Command{Type: control.CommandToggle})
	case TypeSetProcessing:
		h.command(c, control.Command{Type: control.CommandSetProcessing, Enabled: msg.Enabled})
	case TypeRetry:
		h.command(c, control.Command{Type: control.CommandRetry})
	case TypeOffer:
		if h.handler.OnOffer != nil {
			h.handler.OnOffer(c, msg.Payload)
		}
	case TypeICECandidate:
		if h.handler.OnICECandidate != nil {
			h.handler.OnICECandidate(c, msg.Payload)
		}
	case TypePing:
		_ = c.Send(Message{Type: TypePong, Timestamp: time.Now().UnixMilli()})
	default:
		_ = c.SendError(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (h *Hub) command(c *Client, cmd control.Command) {
	if h.handler.OnCommand != nil {
		h.handler.OnCommand(c, cmd)
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.Close()
	if ok {
		h.logger.Info("client disconnected", slog.String("client", c.id))
		if h.handler.OnDisconnect != nil {
			h.handler.OnDisconnect(c)
		}
	}
}

// Broadcast sends msg to every connected client. Clients that fail to
// receive it are dropped.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			h.drop(c)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// Client is one connected page.
type Client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

func (c *Client) ID() string { return c.id }

// Send writes msg to the client.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// SendAnswer sends an SDP answer.
func (c *Client) SendAnswer(payload json.RawMessage) error {
	return c.Send(Message{Type: TypeAnswer, Payload: payload})
}

// SendICECandidate sends a local ICE candidate.
func (c *Client) SendICECandidate(payload json.RawMessage) error {
	return c.Send(Message{Type: TypeICECandidate, Payload: payload})
}

// SendError reports a failed request.
func (c *Client) SendError(msg string) error {
	return c.Send(Message{Type: TypeError, Msg: msg})
}

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn.Close()
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
