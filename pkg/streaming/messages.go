// Package streaming defines the journal stream a host sends to a remote
// match viewer.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/gridclash/arena/pkg/core"
)

// Message type constants of the journal stream.
const (
	TypeStartMatch = "start_match"
	TypeEndMatch   = "end_match"
	TypeAddPlayer  = "add_player"
	TypeAction     = "action"
	TypeKill       = "kill"
	TypeEviction   = "eviction"
	TypeAck        = "ack"
)

// Envelope wraps all messages sent over the stream.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the viewer's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload carries match metadata.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

// Marshal builds the JSON envelope for payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
