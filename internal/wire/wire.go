// Package wire defines the JSON frames exchanged with the chat server.
//
// Every frame is a JSON object carrying a "type" discriminator:
//
//	{"type":"login","name":"cenk"}
//	{"type":"chat","id":"...","thread":"...","from":"cenk","to":"rauf","body":"hi"}
//	{"type":"presence","name":"rauf","status":"online"}
//
// There is no versioning, acknowledgement or authentication token.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type is the frame discriminator.
type Type string

const (
	TypeLogin    Type = "login"
	TypeChat     Type = "chat"
	TypePresence Type = "presence"
)

var (
	// ErrMalformed is returned when a frame is not a JSON object.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownType is returned for frames with a missing or unrecognized type.
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidMessage is returned when a frame fails field validation.
	ErrInvalidMessage = errors.New("invalid message")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Message is implemented by every frame payload.
type Message interface {
	MessageType() Type
}

// Login announces the local identity. It is replayed on every reconnect.
type Login struct {
	Name string `json:"name" validate:"required"`
}

// Chat carries one chat line. Thread is empty for legacy peers that key
// conversations by name.
type Chat struct {
	ID     string `json:"id" validate:"required"`
	Thread string `json:"thread,omitempty"`
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Body   string `json:"body"`
}

// Presence reports a contact going online or offline.
type Presence struct {
	Name   string `json:"name" validate:"required"`
	Status string `json:"status" validate:"oneof=online offline"`
}

func (*Login) MessageType() Type    { return TypeLogin }
func (*Chat) MessageType() Type     { return TypeChat }
func (*Presence) MessageType() Type { return TypePresence }

// Encode validates m and marshals it with its type discriminator.
func Encode(m Message) ([]byte, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, m.MessageType(), err)
	}

	switch v := m.(type) {
	case *Login:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*Login
		}{TypeLogin, v})
	case *Chat:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*Chat
		}{TypeChat, v})
	case *Presence:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*Presence
		}{TypePresence, v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// Decode parses a frame into its concrete payload type.
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m Message
	switch envelope.Type {
	case TypeLogin:
		m = &Login{}
	case TypeChat:
		m = &Chat{}
	case TypePresence:
		m = &Presence{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}

	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, envelope.Type, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, envelope.Type, err)
	}
	return m, nil
}
