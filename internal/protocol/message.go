// Package protocol defines the signaling wire format shared by the server
// and the Go participant. Every frame is a JSON text message.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Mesh/internal/domain"
)

// Message types.
const (
	TypeJoin            = "join"
	TypeLeave           = "leave"
	TypeOffer           = "offer"
	TypeAnswer          = "answer"
	TypeICECandidate    = "ice-candidate"
	TypeExistingMembers = "existing-members"
	TypeMemberJoined    = "member-joined"
	TypeMemberLeft      = "member-left"
	TypeWelcome         = "welcome"
	TypePing            = "ping"
	TypePong            = "pong"
)

// Message is the envelope of every frame.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type LeavePayload struct {
	RoomID string `json:"roomId"`
}

type MemberLeftPayload struct {
	ID domain.ConnectionID `json:"id"`
}

type WelcomePayload struct {
	ID domain.ConnectionID `json:"id"`
}

// SessionPayload carries an offer or an answer. SDP is kept opaque so
// the relay forwards whatever the browser produced.
type SessionPayload struct {
	SDP  json.RawMessage     `json:"sdp"`
	To   domain.ConnectionID `json:"to,omitempty"`
	From domain.ConnectionID `json:"from,omitempty"`
}

type CandidatePayload struct {
	Candidate json.RawMessage     `json:"candidate"`
	To        domain.ConnectionID `json:"to,omitempty"`
	From      domain.ConnectionID `json:"from,omitempty"`
}

// New builds a message with payload marshaled to JSON. A nil payload
// produces a message without the payload field.
func New(typ string, payload any) (Message, error) {
	msg := Message{Type: typ}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	msg.Payload = raw
	return msg, nil
}

// Encode returns the wire bytes for typ and payload.
func Encode(typ string, payload any) ([]byte, error) {
	msg, err := New(typ, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode parses the envelope only; payload stays raw.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode envelope: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("decode envelope: missing type")
	}
	return msg, nil
}

// Into unmarshals the payload of m into v.
func (m Message) Into(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: bad payload: %w", m.Type, err)
	}
	return nil
}
