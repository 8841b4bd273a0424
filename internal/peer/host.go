package peer

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/EdgeCam/internal/encoder"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/transport"
)

// Data channel labels.
const (
	LabelFrames  = "frames"
	LabelControl = "control"
)

// maxFrameBytes keeps a frame inside a single SCTP message.
const maxFrameBytes = 64 * 1024

var errFrameTooLarge = errors.New("frame exceeds data channel message size")

// Signaler delivers the answer and local ICE candidates to the viewer.
type Signaler interface {
	SendAnswer(payload json.RawMessage) error
	SendICECandidate(payload json.RawMessage) error
}

// dataChannels is what a Host needs from its transport: frames out,
// control commands in.
type dataChannels interface {
	transport.FrameSender
	transport.ControlReceiver
	SetControlChannel(dc *webrtc.DataChannel)
}

// Host answers a viewer's offer and streams processed frames to it.
type Host struct {
	id        string
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport dataChannels
	logger    *slog.Logger
}

// NewHost creates a Host for the viewer identified by id.
func NewHost(id string, sig Signaler, iceServers []webrtc.ICEServer, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "peer"), slog.String("viewer", id))

	pc, err := NewPeerConnection(iceServers, logger)
	if err != nil {
		return nil, err
	}

	h := &Host{
		id:     id,
		pc:     pc,
		sig:    sig,
		logger: logger,
	}

	// Frames are disposable: unordered and never retransmitted.
	framesOrdered := false
	framesMaxRetransmits := uint16(0)
	framesDC, err := pc.CreateDataChannel(LabelFrames, &webrtc.DataChannelInit{
		Ordered:        &framesOrdered,
		MaxRetransmits: &framesMaxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	framesDC.OnOpen(func() {
		logger.Info("frames data channel open")
	})
	h.transport = transport.NewDataChannelTransport(framesDC, nil)

	// The viewer opens the control channel with its offer.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != LabelControl {
			logger.Debug("ignoring data channel", slog.String("label", dc.Label()))
			return
		}
		dc.OnOpen(func() {
			logger.Info("control data channel open")
		})
		h.transport.SetControlChannel(dc)
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", slog.Any("error", err))
			return
		}
		_ = sig.SendICECandidate(data)
	})

	return h, nil
}

// ID returns the viewer ID.
func (h *Host) ID() string {
	return h.id
}

// Transport returns the receiver for the viewer's control commands.
func (h *Host) Transport() transport.ControlReceiver {
	return h.transport
}

// HandleOffer processes an incoming offer and sends the answer.
func (h *Host) HandleOffer(payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}

	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}

	if err := h.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	return h.sig.SendAnswer(answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return h.pc.AddICECandidate(candidate)
}

// Stream sends every new image on surface until ctx is done. Frames
// produced before the channel opens, or too large for one message, are
// skipped.
func (h *Host) Stream(ctx context.Context, surface *pipeline.Surface, enc encoder.Encoder) {
	var last uint64
	for {
		changed := surface.Changed()
		img, seq := surface.Current()
		if img != nil && seq != last {
			last = seq
			h.send(img, enc)
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func (h *Host) send(img image.Image, enc encoder.Encoder) {
	data, err := enc.Encode(img)
	if err != nil {
		h.logger.Warn("encode frame", slog.Any("error", err))
		return
	}
	if len(data) > maxFrameBytes {
		h.logger.Debug("dropping frame", slog.Any("error", errFrameTooLarge), slog.Int("bytes", len(data)))
		return
	}
	if err := h.transport.SendFrame(data); err != nil && !errors.Is(err, transport.ErrNotOpen) {
		h.logger.Debug("send frame", slog.Any("error", err))
	}
}

// Close shuts down the peer connection.
func (h *Host) Close() {
	if h.pc != nil {
		h.pc.Close()
	}
}
