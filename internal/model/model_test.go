package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"ArenaInfo", &ArenaInfo{}, "arena_infos"},
		{"Match", &Match{}, "matches"},
		{"Player", &Player{}, "players"},
		{"Action", &Action{}, "actions"},
		{"KillEvent", &KillEvent{}, "kill_events"},
		{"EvictionEvent", &EvictionEvent{}, "eviction_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoverTables(t *testing.T) {
	assert.Len(t, DatabaseModels, 6)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no TableName", m)
	}
}
