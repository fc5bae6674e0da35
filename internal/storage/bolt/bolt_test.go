package boltstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gridclash/arena/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal", "arena.bolt")
	b := New(Config{Path: path, Timeout: time.Second})
	require.NoError(t, b.Init())
	return b, path
}

func TestInit_RequiresPath(t *testing.T) {
	assert.Error(t, New(Config{}).Init())
}

func TestRecordsBeforeStart(t *testing.T) {
	b, _ := newBackend(t)
	defer b.Close()

	assert.ErrorIs(t, b.AddPlayer(&core.Player{ID: "a"}), ErrNoMatch)
	assert.ErrorIs(t, b.RecordAction(&core.ActionRecord{Seq: 1}), ErrNoMatch)
	assert.ErrorIs(t, b.EndMatch(&core.MatchResult{}), ErrNoMatch)
}

func TestJournalRoundTrip(t *testing.T) {
	b, path := newBackend(t)

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, b.StartMatch(&core.Match{ID: "m-1", HostName: "arena", GridSize: 10, StartTime: start}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "alice", X: 5, Y: 5, Health: 100, IsHost: true, Symbol: "A"}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "bob", X: 1, Y: 2, Health: 100, Symbol: "B"}))

	// out of order on purpose: the cursor returns them by seq
	require.NoError(t, b.RecordAction(&core.ActionRecord{Seq: 300, Outcome: core.OutcomeApplied,
		Message: core.ActionMessage{SenderID: "bob", Action: core.ActionMove, Direction: core.DirectionUp}}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Seq: 2, Outcome: core.OutcomeRejected, Reason: "out of range",
		Message: core.ActionMessage{SenderID: "alice", Action: core.ActionShoot, TargetID: "bob"}}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Seq: 300, KillerID: "alice", VictimID: "bob", Distance: 1.5}))
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "carol", Reason: "timeout"}))
	assert.Empty(t, b.GetExportedFilePath())

	winner := "alice"
	require.NoError(t, b.EndMatch(&core.MatchResult{MatchID: "m-1", EndTime: start.Add(2 * time.Minute), WinnerID: &winner, Decided: true}))

	assert.Equal(t, path, b.GetExportedFilePath())
	meta := b.GetExportMetadata()
	assert.Equal(t, "m-1", meta.MatchID)
	assert.Equal(t, "alice", meta.WinnerID)
	assert.Equal(t, 2, meta.PlayerCount)
	assert.InDelta(t, 120.0, meta.MatchDuration, 0.001)

	require.NoError(t, b.Close())

	data, err := ReadMatch(path, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "arena", data.Match.HostName)
	assert.True(t, start.Equal(data.Match.StartTime))
	require.Len(t, data.Players, 2)
	assert.Equal(t, "alice", data.Players[0].ID)
	assert.Equal(t, "bob", data.Players[1].ID)
	require.Len(t, data.Actions, 2)
	assert.Equal(t, uint64(2), data.Actions[0].Seq)
	assert.Equal(t, uint64(300), data.Actions[1].Seq)
	require.Len(t, data.Kills, 1)
	require.Len(t, data.Evictions, 1)
	require.NotNil(t, data.Result)
	require.NotNil(t, data.Result.WinnerID)
	assert.Equal(t, "alice", *data.Result.WinnerID)
}

func TestMultipleMatchesInOneFile(t *testing.T) {
	b, path := newBackend(t)
	require.NoError(t, b.StartMatch(&core.Match{ID: "first", HostName: "one"}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "a"}))
	require.NoError(t, b.StartMatch(&core.Match{ID: "second", HostName: "two"}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "b"}))
	require.NoError(t, b.Close())

	matches, err := ListMatches(path)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	ids := []string{matches[0].ID, matches[1].ID}
	assert.ElementsMatch(t, []string{"first", "second"}, ids)

	second, err := ReadMatch(path, "second")
	require.NoError(t, err)
	require.Len(t, second.Players, 1)
	assert.Equal(t, "b", second.Players[0].ID)
	assert.Nil(t, second.Result)
}

func TestReadMatch_NotFound(t *testing.T) {
	b, path := newBackend(t)
	require.NoError(t, b.Close())

	_, err := ReadMatch(path, "missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestClose_Idempotent(t *testing.T) {
	b, _ := newBackend(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.AddPlayer(&core.Player{ID: "late"}), ErrNoMatch)
}

func TestSeqKeyOrdersNumerically(t *testing.T) {
	assert.Less(t, string(seqKey(2)), string(seqKey(300)))
	assert.Less(t, string(seqKey(255)), string(seqKey(256)))
}
