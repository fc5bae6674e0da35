package gormstorage

import (
	"strings"
	"testing"
	"time"

	"github.com/gridclash/arena/internal/database"
	"github.com/gridclash/arena/internal/model"
	"github.com/gridclash/arena/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend creates a Backend on a private in-memory SQLite database.
// The writer interval is long so tests control flushing.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.GetSqliteMemoryDB(name)
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func startMatch(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartMatch(&core.Match{
		ID:        "m-" + t.Name(),
		HostName:  "arena",
		GridSize:  core.GridSize,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestStartMatch_InsertsRow(t *testing.T) {
	b := newTestBackend(t)
	startMatch(t, b)

	require.NotZero(t, b.MatchRowID())
	var m model.Match
	require.NoError(t, b.DB().First(&m, b.MatchRowID()).Error)
	assert.Equal(t, "arena", m.HostName)
	assert.False(t, m.EndTime.Valid)
}

func TestRecords_QueueUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	startMatch(t, b)

	require.NoError(t, b.AddPlayer(&core.Player{ID: "alice", X: 5, Y: 5, Health: 100, IsHost: true, Symbol: "A"}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Seq: 1, Outcome: core.OutcomeApplied,
		Message: core.ActionMessage{SenderID: "alice", Action: core.ActionMove, Direction: core.DirectionUp}, ActorX: 5, ActorY: 4}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Seq: 1, KillerID: "alice", VictimID: "bob", Distance: 1}))
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "carol", Reason: "timeout"}))

	assert.Equal(t, map[string]int{"players": 1, "actions": 1, "kills": 1, "evictions": 1}, b.QueueLengths())

	var count int64
	require.NoError(t, b.DB().Model(&model.Action{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, b.Flush())
	assert.Equal(t, map[string]int{"players": 0, "actions": 0, "kills": 0, "evictions": 0}, b.QueueLengths())

	var actions []model.Action
	require.NoError(t, b.DB().Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, b.MatchRowID(), actions[0].MatchID)
	assert.Equal(t, "move", actions[0].Action)
	assert.Equal(t, 4, actions[0].ActorY)

	var kills []model.KillEvent
	require.NoError(t, b.DB().Find(&kills).Error)
	require.Len(t, kills, 1)
	assert.Equal(t, "bob", kills[0].VictimID)

	var evictions []model.EvictionEvent
	require.NoError(t, b.DB().Find(&evictions).Error)
	require.Len(t, evictions, 1)
	assert.Equal(t, "carol", evictions[0].PlayerID)
}

func TestFlush_WaitsForMatchRow(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.AddPlayer(&core.Player{ID: "early"}))

	require.NoError(t, b.Flush())
	assert.Equal(t, 1, b.QueueLengths()["players"])

	startMatch(t, b)
	require.NoError(t, b.Flush())
	assert.Zero(t, b.QueueLengths()["players"])
}

func TestEndMatch_RecordsResult(t *testing.T) {
	b := newTestBackend(t)
	startMatch(t, b)
	require.NoError(t, b.AddPlayer(&core.Player{ID: "alice", X: 5, Y: 5, Health: 100, IsHost: true}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "bob", X: 1, Y: 1, Health: 100}))

	winner := "alice"
	death := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	require.NoError(t, b.EndMatch(&core.MatchResult{
		EndTime:  death,
		WinnerID: &winner,
		Decided:  true,
		Players: []core.Player{
			{ID: "alice", X: 5, Y: 4, Health: 80},
			{ID: "bob", X: 2, Y: 1, Health: 0, IsDead: true, DeathTime: death},
		},
	}))

	var m model.Match
	require.NoError(t, b.DB().First(&m, b.MatchRowID()).Error)
	assert.True(t, m.EndTime.Valid)
	assert.True(t, m.Decided)
	assert.Equal(t, "alice", m.WinnerID.String)

	var bob model.Player
	require.NoError(t, b.DB().Where("player_id = ?", "bob").First(&bob).Error)
	assert.Equal(t, 1, bob.SpawnX)
	assert.Equal(t, 2, bob.FinalX)
	assert.True(t, bob.IsDead)
	assert.True(t, bob.DeathTime.Valid)

	var alice model.Player
	require.NoError(t, b.DB().Where("player_id = ?", "alice").First(&alice).Error)
	assert.Equal(t, 80, alice.Health)
	assert.Equal(t, 4, alice.FinalY)
}

func TestEndMatch_WithoutStart(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.EndMatch(&core.MatchResult{}), ErrNoMatch)
}

func TestGetLastDBWriteDuration(t *testing.T) {
	b := newTestBackend(t)
	assert.Zero(t, b.GetLastDBWriteDuration())

	startMatch(t, b)
	require.NoError(t, b.RecordKill(&core.KillEvent{KillerID: "a", VictimID: "b"}))
	require.NoError(t, b.Flush())
	assert.Positive(t, b.GetLastDBWriteDuration())
}

func TestWriterLoopFlushes(t *testing.T) {
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := database.GetSqliteMemoryDB(name)
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	startMatch(t, b)
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "x"}))

	assert.Eventually(t, func() bool {
		return b.QueueLengths()["evictions"] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClose_FlushesAndIsIdempotent(t *testing.T) {
	b := newTestBackend(t)
	startMatch(t, b)
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "x"}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, b.DB().Model(&model.EvictionEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
