package ipc

import (
	"bytes"
	"encoding/json"

	"codeberg.org/mutker/dashmon/internal/errors"
)

// Message types understood by the daemon. Anything that is not a JSON
// object arrives as TypeText.
const (
	TypeText      = "text"
	TypeModule    = "module"
	TypeAnimation = "animation"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeActivity  = "activity"
)

type Message struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Module *int            `json:"module,omitempty"`
	Active *bool           `json:"active,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Decode parses a datagram. Free-form text becomes a TypeText message; a
// payload that looks like a JSON object but does not parse is an error.
func Decode(payload []byte) (Message, error) {
	errFactory := errors.New()

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{Type: TypeText, Text: string(trimmed)}, nil
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return Message{}, errFactory.Wrap(ErrDecodeFailed, err)
	}
	if msg.Type == "" {
		msg.Type = TypeText
	}

	return msg, nil
}

// Interactive reports whether the message stems from someone using the
// dashboard. Health checks and assistant text do not.
func (m Message) Interactive() bool {
	switch m.Type {
	case TypeModule, TypeAnimation, TypeActivity:
		return true
	default:
		return false
	}
}
