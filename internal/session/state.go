package session

import "fmt"

// CameraState tracks camera acquisition.
type CameraState int

const (
	CameraLoading CameraState = iota
	CameraReady
	CameraUnavailable
)

func (c CameraState) String() string {
	switch c {
	case CameraLoading:
		return "loading"
	case CameraReady:
		return "ready"
	case CameraUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("CameraState(%d)", int(c))
	}
}

func (c CameraState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CameraState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "loading":
		*c = CameraLoading
	case "ready":
		*c = CameraReady
	case "unavailable":
		*c = CameraUnavailable
	default:
		return fmt.Errorf("unknown camera state %q", b)
	}
	return nil
}

// State is the snapshot shown by the UI layers.
type State struct {
	Camera       CameraState `json:"camera"`
	Processing   bool        `json:"processing"`
	FPS          int         `json:"fps"`
	ProcessingMS int         `json:"processingMs"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	Error        string      `json:"error,omitempty"`
}

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Event is delivered to subscribers on every state change. Notice is nil
// unless the change carries a message.
type Event struct {
	State  State
	Notice *Notice
}
