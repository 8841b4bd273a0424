package signaling

import (
	"encoding/json"

	"github.com/junsooki/EdgeCam/internal/session"
)

// Message types for the page websocket.
const (
	TypeRegistered    = "registered"
	TypeState         = "state"
	TypeNotice        = "notice"
	TypeToggle        = "toggle"
	TypeSetProcessing = "set-processing"
	TypeRetry         = "retry"
	TypeOffer         = "offer"
	TypeAnswer        = "answer"
	TypeICECandidate  = "ice-candidate"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeError         = "error"
)

// Message is the envelope for all websocket messages.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	State     *session.State  `json:"state,omitempty"`
	Notice    *session.Notice `json:"notice,omitempty"`
	Enabled   bool            `json:"enabled,omitempty"`
	Msg       string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}
