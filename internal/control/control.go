// Package control defines the start/pause commands accepted from page
// clients, over either the websocket or a WebRTC data channel.
package control

import (
	"context"
	"encoding/json"
	"fmt"
)

// CommandType identifies a control command.
type CommandType string

const (
	CommandToggle        CommandType = "toggle"
	CommandSetProcessing CommandType = "set-processing"
	CommandRetry         CommandType = "retry"
)

// Command is the wire format for control commands.
type Command struct {
	Type    CommandType `json:"type"`
	Enabled bool        `json:"enabled,omitempty"`
}

// Target is what commands act on.
type Target interface {
	Toggle() (bool, error)
	SetProcessing(on bool) error
	Retry(ctx context.Context) error
}

// Decode parses a JSON command.
func Decode(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	switch cmd.Type {
	case CommandToggle, CommandSetProcessing, CommandRetry:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// Apply runs cmd against t.
func Apply(ctx context.Context, t Target, cmd Command) error {
	switch cmd.Type {
	case CommandToggle:
		_, err := t.Toggle()
		return err
	case CommandSetProcessing:
		return t.SetProcessing(cmd.Enabled)
	case CommandRetry:
		return t.Retry(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}
