// internal/storage/memory/memory_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridclash/arena/internal/config"
	v1 "github.com/gridclash/arena/internal/storage/memory/export/v1"
	"github.com/gridclash/arena/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatch() *core.Match {
	return &core.Match{
		ID:        "5f0c7a52-8d1e-4c4e-9b0f-7d1c2a3b4c5d",
		HostName:  "arena one",
		GridSize:  core.GridSize,
		StartTime: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Version:   "test",
	}
}

func playMatch(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "alice", X: 5, Y: 5, Health: 100, IsHost: true, Symbol: "A"}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "bob", X: 7, Y: 5, Health: 100, Symbol: "B"}))

	hp := 0
	require.NoError(t, b.RecordAction(&core.ActionRecord{
		Seq:          1,
		Outcome:      core.OutcomeApplied,
		Message:      core.ActionMessage{SenderID: "alice", Action: core.ActionShoot, TargetID: "bob", LogicalClock: 1},
		TargetHealth: &hp,
	}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Seq: 1, KillerID: "alice", VictimID: "bob", Distance: 2}))

	winner := "alice"
	require.NoError(t, b.EndMatch(&core.MatchResult{
		MatchID:  testMatch().ID,
		EndTime:  testMatch().StartTime.Add(time.Minute),
		WinnerID: &winner,
		Decided:  true,
	}))
}

func TestBackend_RequiresStartedMatch(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	assert.ErrorIs(t, b.AddPlayer(&core.Player{ID: "a"}), ErrNoMatch)
	assert.ErrorIs(t, b.RecordAction(&core.ActionRecord{}), ErrNoMatch)
	assert.ErrorIs(t, b.RecordKill(&core.KillEvent{}), ErrNoMatch)
	assert.ErrorIs(t, b.RecordEviction(&core.EvictionEvent{}), ErrNoMatch)
	assert.ErrorIs(t, b.EndMatch(&core.MatchResult{}), ErrNoMatch)
}

func TestBackend_StartMatchResets(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "a"}))
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "a"}))

	players, _, _, evictions := b.Counts()
	assert.Equal(t, 1, players)
	assert.Equal(t, 1, evictions)

	require.NoError(t, b.StartMatch(testMatch()))
	players, actions, kills, evictions := b.Counts()
	assert.Zero(t, players+actions+kills+evictions)
}

func TestBackend_StoresCopies(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartMatch(testMatch()))

	p := &core.Player{ID: "alice", Health: 100}
	require.NoError(t, b.AddPlayer(p))
	p.Health = 1

	export := b.Export()
	require.Len(t, export.Players, 1)
	assert.Equal(t, 100, export.Players[0].FinalHealth)
}

func TestBackend_ExportGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	playMatch(t, b)

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "arena_one_20260115_103000_5f0c7a52.json.gz", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, testMatch().ID, export.MatchID)
	require.NotNil(t, export.WinnerID)
	assert.Equal(t, "alice", *export.WinnerID)
	assert.Len(t, export.Players, 2)
	assert.Len(t, export.Events, 2)

	meta := b.GetExportMetadata()
	assert.Equal(t, testMatch().ID, meta.MatchID)
	assert.Equal(t, "arena one", meta.HostName)
	assert.Equal(t, "alice", meta.WinnerID)
	assert.Equal(t, 2, meta.PlayerCount)
	assert.InDelta(t, 60.0, meta.MatchDuration, 0.001)
}

func TestBackend_ExportPlain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := New(config.MemoryConfig{OutputDir: dir})
	playMatch(t, b)

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"formatVersion":1`)
	assert.Contains(t, string(data), `"killed"`)
}

func TestBackend_ExportFailsOnUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	b := New(config.MemoryConfig{OutputDir: filepath.Join(file, "sub")})
	require.NoError(t, b.StartMatch(testMatch()))
	err := b.EndMatch(&core.MatchResult{})
	assert.Error(t, err)
	assert.Empty(t, b.GetExportedFilePath())
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "arena"},
		{"plain", "plain"},
		{"a b:c/d\\e", "a_b_c_d_e"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "match", shortID(""))
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))
}
