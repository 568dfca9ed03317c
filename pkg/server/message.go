package server

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Message types exchanged over the WebSocket.
const (
	// TypeEvent is sent by the client when the user interacts with an
	// element carrying a hydration ID.
	TypeEvent = "event"

	// TypeHTML carries the re-rendered body.
	TypeHTML = "html"

	// TypeReload asks the client to reload the page.
	TypeReload = "reload"

	// TypeError reports a problem with a client message.
	TypeError = "error"
)

// ErrSessionClosed is returned when writing to a closed session.
var ErrSessionClosed = errors.New("server: session closed")

// Message is one WebSocket message in either direction.
type Message struct {
	Type string `json:"type"`

	// Event fields (client to server).
	HID     string  `json:"hid,omitempty"`
	Event   string  `json:"event,omitempty"`
	Value   *string `json:"value,omitempty"`
	Checked *bool   `json:"checked,omitempty"`

	// HTML is the body markup of an html message.
	HTML string `json:"html,omitempty"`

	// Error describes an error message.
	Error string `json:"error,omitempty"`
}

// EncodeMessage encodes m as JSON.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage decodes a client message and checks that it is complete.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case TypeEvent:
		if m.HID == "" || m.Event == "" {
			return Message{}, fmt.Errorf("decode message: event needs hid and event")
		}
	case TypeHTML, TypeReload, TypeError:
	default:
		return Message{}, fmt.Errorf("decode message: unknown type %q", m.Type)
	}
	return m, nil
}
