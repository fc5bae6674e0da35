package streaming

import (
	"encoding/json"
	"testing"

	"github.com/gridclash/arena/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_WrapsPayload(t *testing.T) {
	data, err := Marshal(TypeKill, core.KillEvent{KillerID: "a", VictimID: "b", Distance: 1.5})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeKill, env.Type)

	var kill core.KillEvent
	require.NoError(t, json.Unmarshal(env.Payload, &kill))
	assert.Equal(t, "b", kill.VictimID)
	assert.Equal(t, 1.5, kill.Distance)
}

func TestMarshal_UnsupportedPayload(t *testing.T) {
	_, err := Marshal(TypeAction, make(chan int))
	assert.Error(t, err)
}
