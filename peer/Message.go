// Package peer implements best-effort sharing of chat lines, best
// scores, and demonstrations between sessions in the same room.
// Delivery is unordered and may drop messages; messages are never
// deduplicated.
package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/samuelfneumann/retrolearn/dataset"
	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/environment/envconfig"
)

// ErrInvalidMessage is returned when a message is malformed
var ErrInvalidMessage = errors.New("invalid peer message")

const (
	// DefaultRoom is joined when no room is named
	DefaultRoom string = "lobby"

	// DefaultUser is used when no user name is given
	DefaultUser string = "player"

	// MaxNameLen is the maximum number of characters in room and user
	// names
	MaxNameLen int = 24
)

// Type is the kind of a Message
type Type string

const (
	Chat    Type = "chat"
	Best    Type = "best"
	Dataset Type = "dataset"
)

// Message is a single message broadcast to a room
type Message struct {
	Type   Type   `json:"type"`
	Sender string `json:"sender,omitempty"` // ID of the sending Member
	User   string `json:"user"`

	// Chat
	Text string `json:"text,omitempty"`

	// Best and Dataset
	Env string `json:"env,omitempty"`

	// Best
	Value string `json:"value,omitempty"`

	// Dataset
	Payload *dataset.Payload `json:"payload,omitempty"`
}

// NewChat returns a new chat Message
func NewChat(user, text string) Message {
	return Message{Type: Chat, User: Truncate(user, DefaultUser), Text: text}
}

// NewBest returns a new Message announcing the best score on env
func NewBest(user, env, value string) Message {
	return Message{
		Type:  Best,
		User:  Truncate(user, DefaultUser),
		Env:   env,
		Value: value,
	}
}

// NewDataset returns a new Message sharing demonstrations on env
func NewDataset(user, env string, samples []dataset.Sample) Message {
	payload := dataset.NewPayload(samples)
	return Message{
		Type:    Dataset,
		User:    Truncate(user, DefaultUser),
		Env:     env,
		Payload: &payload,
	}
}

// Validate returns an error wrapping ErrInvalidMessage if the Message
// is malformed
func (m Message) Validate() error {
	switch m.Type {
	case Chat:
		return nil

	case Best:
		if _, err := environment.ParseKind(m.Env); err != nil {
			return fmt.Errorf("validate: %w: %v", ErrInvalidMessage, err)
		}
		return nil

	case Dataset:
		_, err := m.Samples()
		return err
	}

	return fmt.Errorf("validate: %w: unknown message type %q",
		ErrInvalidMessage, m.Type)
}

// Samples returns the demonstrations shared in a dataset Message
func (m Message) Samples() ([]dataset.Sample, error) {
	if m.Type != Dataset {
		return nil, fmt.Errorf("samples: %w: %v message carries no "+
			"samples", ErrInvalidMessage, m.Type)
	}
	kind, err := environment.ParseKind(m.Env)
	if err != nil {
		return nil, fmt.Errorf("samples: %w: %v", ErrInvalidMessage, err)
	}
	if m.Payload == nil {
		return nil, fmt.Errorf("samples: %w: missing payload",
			ErrInvalidMessage)
	}

	samples, err := m.Payload.Samples(envconfig.FeatureLen(kind))
	if err != nil {
		return nil, fmt.Errorf("samples: %w: %v", ErrInvalidMessage, err)
	}
	return samples, nil
}

// Encode serializes a Message
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// Decode deserializes and validates a Message
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode: %w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, fmt.Errorf("decode: %w", err)
	}
	return m, nil
}

// Truncate returns name cut to MaxNameLen characters, or def if name is
// empty
func Truncate(name, def string) string {
	if name == "" {
		name = def
	}
	if utf8.RuneCountInString(name) <= MaxNameLen {
		return name
	}
	return string([]rune(name)[:MaxNameLen])
}
