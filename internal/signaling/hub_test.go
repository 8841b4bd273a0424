package signaling

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/EdgeCam/internal/control"
	"github.com/junsooki/EdgeCam/internal/session"
)

type hubRig struct {
	hub      *Hub
	srv      *httptest.Server
	commands chan control.Command
	gone     chan string
}

func newHubRig(t *testing.T) *hubRig {
	t.Helper()
	r := &hubRig{
		commands: make(chan control.Command, 4),
		gone:     make(chan string, 4),
	}
	r.hub = NewHub(Handler{
		OnCommand: func(c *Client, cmd control.Command) { r.commands <- cmd },
		OnOffer: func(c *Client, payload json.RawMessage) {
			_ = c.SendAnswer(json.RawMessage(`{"type":"answer","sdp":"v=0"}`))
		},
		OnDisconnect: func(c *Client) { r.gone <- c.ID() },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.srv = httptest.NewServer(r.hub)
	t.Cleanup(func() {
		r.hub.Close()
		r.srv.Close()
	})
	return r
}

func (r *hubRig) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != TypeRegistered || msg.ID == "" {
		t.Fatalf("first message = %+v", msg)
	}
	return conn, msg.ID
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func (r *hubRig) command(t *testing.T) control.Command {
	t.Helper()
	select {
	case cmd := <-r.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command received")
		return control.Command{}
	}
}

func TestHubCommands(t *testing.T) {
	r := newHubRig(t)
	conn, _ := r.dial(t)
	defer conn.Close()

	conn.WriteJSON(Message{Type: TypeToggle})
	if cmd := r.command(t); cmd.Type != control.CommandToggle {
		t.Errorf("cmd = %+v", cmd)
	}
	conn.WriteJSON(Message{Type: TypeSetProcessing, Enabled: true})
	if cmd := r.command(t); cmd.Type != control.CommandSetProcessing || !cmd.Enabled {
		t.Errorf("cmd = %+v", cmd)
	}
	conn.WriteJSON(Message{Type: TypeRetry})
	if cmd := r.command(t); cmd.Type != control.CommandRetry {
		t.Errorf("cmd = %+v", cmd)
	}
}

func TestHubOfferAnswer(t *testing.T) {
	r := newHubRig(t)
	conn, _ := r.dial(t)
	defer conn.Close()

	conn.WriteJSON(Message{Type: TypeOffer, Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})
	msg := read(t, conn)
	if msg.Type != TypeAnswer || !strings.Contains(string(msg.Payload), `"answer"`) {
		t.Errorf("reply = %+v", msg)
	}
}

func TestHubPingAndUnknown(t *testing.T) {
	r := newHubRig(t)
	conn, _ := r.dial(t)
	defer conn.Close()

	conn.WriteJSON(Message{Type: TypePing})
	if msg := read(t, conn); msg.Type != TypePong || msg.Timestamp == 0 {
		t.Errorf("reply = %+v", msg)
	}
	conn.WriteJSON(Message{Type: "launch"})
	if msg := read(t, conn); msg.Type != TypeError || !strings.Contains(msg.Msg, "launch") {
		t.Errorf("reply = %+v", msg)
	}
}

func TestHubBroadcastAndDisconnect(t *testing.T) {
	r := newHubRig(t)
	a, idA := r.dial(t)
	b, _ := r.dial(t)
	defer b.Close()

	deadline := time.Now().Add(2 * time.Second)
	for r.hub.Count() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("count = %d", r.hub.Count())
		}
		time.Sleep(time.Millisecond)
	}

	r.hub.Broadcast(Message{Type: TypeState, State: &session.State{Camera: session.CameraReady, FPS: 30}})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		if msg.Type != TypeState || msg.State == nil || msg.State.FPS != 30 || msg.State.Camera != session.CameraReady {
			t.Errorf("broadcast = %+v", msg)
		}
	}

	a.Close()
	select {
	case id := <-r.gone:
		if id != idA {
			t.Errorf("disconnected %q, want %q", id, idA)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect")
	}
	if r.hub.Count() != 1 {
		t.Errorf("count = %d", r.hub.Count())
	}
}
