package wire

import (
	"testing"

	"github.com/gridclash/arena/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestScramble_Involution(t *testing.T) {
	in := []byte("shoot bob")
	once := Scramble(in, DefaultKey)
	assert.NotEqual(t, in, once)
	assert.Equal(t, in, Scramble(once, DefaultKey))
	assert.Equal(t, []byte("shoot bob"), in, "input must not be modified")
}

func TestCodec_EncodeDecode(t *testing.T) {
	c := NewCodec(DefaultKey)
	msg := core.ActionMessage{
		SenderID:      "alice",
		LogicalClock:  4,
		Action:        core.ActionShoot,
		TargetID:      "bob",
		SendTimestamp: 1700000000000,
	}

	data, err := c.Encode(msg)
	require.NoError(t, err)

	plain, err := msgpack.Marshal(&msg)
	require.NoError(t, err)
	assert.NotEqual(t, plain, data, "payload must be scrambled")

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestCodec_DecodeErrors(t *testing.T) {
	c := NewCodec(DefaultKey)

	_, err := c.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = c.Decode([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)

	bad, err := c.Encode(core.ActionMessage{SenderID: "alice", Action: core.ActionMove, Direction: "sideways"})
	require.NoError(t, err)
	_, err = c.Decode(bad)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestCodec_WrongKey(t *testing.T) {
	msg := core.ActionMessage{SenderID: "alice", Action: core.ActionMove, Direction: core.DirectionUp}
	data, err := NewCodec(DefaultKey).Encode(msg)
	require.NoError(t, err)

	_, err = NewCodec(0x11).Decode(data)
	assert.Error(t, err)
}

func TestCodec_DecodeNormalizesCase(t *testing.T) {
	c := NewCodec(DefaultKey)

	data, err := c.Encode(core.ActionMessage{SenderID: "alice", LogicalClock: 1, Action: "MOVE", Direction: " Up "})
	require.NoError(t, err)
	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.ActionMove, got.Action)
	assert.Equal(t, core.DirectionUp, got.Direction)

	data, err = c.Encode(core.ActionMessage{SenderID: "alice", LogicalClock: 2, Action: "Shoot", TargetID: "bob"})
	require.NoError(t, err)
	got, err = c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.ActionShoot, got.Action)
	assert.Equal(t, "bob", got.TargetID, "ids keep their case")
}
