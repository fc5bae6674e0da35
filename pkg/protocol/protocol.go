// Package protocol defines the JSON envelopes exchanged between game
// clients and the host over a websocket.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gridclash/arena/pkg/core"
)

// Client to host.
const (
	TypeRegister     = "register"
	TypeListPlayers  = "list_players"
	TypeSubmitAction = "submit_action"
)

// Host to client.
const (
	TypeRegistered = "registered"
	TypeRejected   = "rejected"
	TypePlayers    = "players"
	TypeRawEvent   = "raw_event"
	TypeState      = "state"
	TypeDeath      = "death"
	TypeGameEnd    = "game_end"
	TypeError      = "error"
)

// Envelope wraps every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RegisterPayload asks to join the match.
type RegisterPayload struct {
	ID string `json:"id"`
}

// ActionPayload carries one scrambled action message.
type ActionPayload struct {
	Data []byte `json:"data"`
}

// RegisteredPayload confirms registration.
type RegisteredPayload struct {
	Player core.Player `json:"player"`
}

// RejectedPayload explains a refused registration.
type RejectedPayload struct {
	Reason string `json:"reason"`
}

// PlayersPayload answers list_players and carries state pushes.
type PlayersPayload struct {
	Players []core.Player `json:"players"`
}

// DeathPayload announces a death.
type DeathPayload struct {
	PlayerID string `json:"playerId"`
}

// GameEndPayload announces the end of the game. WinnerID is null when
// nobody survived.
type GameEndPayload struct {
	WinnerID *string `json:"winnerId"`
}

// ErrorPayload reports a problem with a client frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode builds a frame of msgType around payload. A nil payload produces
// a frame without one.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode splits a frame into its envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// DecodePayload unmarshals the payload of env into v.
func DecodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", env.Type, err)
	}
	return nil
}
