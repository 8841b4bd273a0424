package peer

import (
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// NewPeerConnection creates a configured PeerConnection.
func NewPeerConnection(iceServers []webrtc.ICEServer, logger *slog.Logger) (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{
		ICEServers: iceServers,
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", slog.String("state", state.String()))
	})
	return pc, nil
}
