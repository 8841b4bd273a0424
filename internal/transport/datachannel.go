package transport

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

// ErrNotOpen is returned when the frames channel is missing or not open yet.
var ErrNotOpen = errors.New("frames data channel not open")

// DataChannelTransport carries processed frames to a viewer and control
// commands back, over two WebRTC data channels.
type DataChannelTransport struct {
	mu        sync.Mutex
	framesDC  *webrtc.DataChannel
	controlDC *webrtc.DataChannel
	onControl func(data []byte)
}

// NewDataChannelTransport wraps the frames and control channels. Either may
// be nil and set later.
func NewDataChannelTransport(framesDC, controlDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{}
	if framesDC != nil {
		t.SetFramesChannel(framesDC)
	}
	if controlDC != nil {
		t.SetControlChannel(controlDC)
	}
	return t
}

// SendFrame sends one encoded frame. Frames sent before the channel opens
// are rejected with ErrNotOpen.
func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.Lock()
	dc := t.framesDC
	t.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) OnControl(cb func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onControl = cb
}

// SetFramesChannel sets or replaces the frames channel.
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.framesDC = dc
}

// SetControlChannel sets or replaces the control channel.
func (t *DataChannelTransport) SetControlChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.controlDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.Lock()
		cb := t.onControl
		t.mu.Unlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}
