package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewContext("arena-01", "1.2.0", start)

	m := c.GetMatch()
	_, err := uuid.Parse(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, c.ID())
	assert.Equal(t, "arena-01", m.HostName)
	assert.Equal(t, 10, m.GridSize)
	assert.Equal(t, start, m.StartTime)

	other := NewContext("arena-01", "1.2.0", start)
	assert.NotEqual(t, c.ID(), other.ID())
}

func TestMarkEnded_FirstCallWins(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewContext("h", "v", start)

	ended, winner := c.Ended()
	assert.False(t, ended)
	assert.Nil(t, winner)
	assert.Equal(t, time.Minute, c.Duration(start.Add(time.Minute)))

	alice := "alice"
	c.MarkEnded(&alice, start.Add(2*time.Minute))
	alice = "mutated"
	c.MarkEnded(nil, start.Add(5*time.Minute))

	ended, winner = c.Ended()
	assert.True(t, ended)
	require.NotNil(t, winner)
	assert.Equal(t, "alice", *winner)
	assert.Equal(t, 2*time.Minute, c.Duration(start.Add(time.Hour)))
}

func TestLogAttrs(t *testing.T) {
	c := NewContext("h", "v", time.Now())
	attrs := c.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "matchId", attrs[0].Key)
	assert.Equal(t, c.ID(), attrs[0].Value.String())
	assert.False(t, attrs[1].Value.Bool())
}
