package transport

// FrameSender sends encoded video frames.
type FrameSender interface {
	SendFrame(data []byte) error
}

// ControlReceiver receives serialized control commands.
type ControlReceiver interface {
	OnControl(callback func(data []byte))
}
