package transport

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestSendFrameBeforeOpen(t *testing.T) {
	if err := NewDataChannelTransport(nil, nil).SendFrame([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("nil channel: err = %v", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	dc, err := pc.CreateDataChannel("frames", nil)
	if err != nil {
		t.Fatal(err)
	}
	tr := NewDataChannelTransport(dc, nil)
	if err := tr.SendFrame([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("unopened channel: err = %v", err)
	}
}
