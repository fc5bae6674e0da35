// Package wire encodes action messages for the transport seam.
//
// The scramble step is a fixed-key XOR applied after msgpack encoding. It
// keeps casual packet dumps unreadable and nothing more; it is not
// encryption.
package wire

import (
	"errors"
	"fmt"

	"github.com/gridclash/arena/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultKey is the scramble key used when none is configured.
const DefaultKey byte = 0x5A

var (
	// ErrEmptyPayload is returned when there is nothing to decode.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrInvalidMessage is returned when a decoded message fails validation.
	ErrInvalidMessage = errors.New("invalid action message")
)

// Codec converts action messages to and from scrambled bytes.
type Codec struct {
	key byte
}

// NewCodec returns a codec using key for the scramble step.
func NewCodec(key byte) Codec {
	return Codec{key: key}
}

// Key returns the configured scramble key.
func (c Codec) Key() byte {
	return c.key
}

// Encode serialises msg and scrambles the result.
func (c Codec) Encode(msg core.ActionMessage) ([]byte, error) {
	raw, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}
	return Scramble(raw, c.key), nil
}

// Decode reverses Encode and validates the message shape.
func (c Codec) Decode(data []byte) (core.ActionMessage, error) {
	var msg core.ActionMessage
	if len(data) == 0 {
		return msg, ErrEmptyPayload
	}
	if err := msgpack.Unmarshal(Scramble(data, c.key), &msg); err != nil {
		return msg, fmt.Errorf("unmarshal action: %w", err)
	}
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg, nil
}

// Scramble XORs every byte with key into a new slice. Applying it twice
// with the same key yields the input.
func Scramble(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key
	}
	return out
}
