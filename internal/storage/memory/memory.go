// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/gridclash/arena/internal/config"
	"github.com/gridclash/arena/internal/storage"
	v1 "github.com/gridclash/arena/internal/storage/memory/export/v1"
	"github.com/gridclash/arena/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)
var _ storage.Uploadable = (*Backend)(nil)

// ErrNoMatch is returned when events arrive before StartMatch.
var ErrNoMatch = errors.New("no match started")

// Backend keeps the match journal in memory and exports it to JSON when the
// match ends.
type Backend struct {
	cfg   config.MemoryConfig
	match *core.Match

	players   []core.Player
	actions   []core.ActionRecord
	kills     []core.KillEvent
	evictions []core.EvictionEvent
	result    *core.MatchResult

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match and resets all collections.
func (b *Backend) StartMatch(match *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match = match
	b.players = nil
	b.actions = nil
	b.kills = nil
	b.evictions = nil
	b.result = nil
	b.lastExportPath = ""
	b.lastExportMetadata = core.UploadMetadata{}
	return nil
}

// EndMatch stores the result and writes the export file.
func (b *Backend) EndMatch(result *core.MatchResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return ErrNoMatch
	}
	b.result = result
	return b.exportJSON()
}

func (b *Backend) AddPlayer(p *core.Player) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return ErrNoMatch
	}
	b.players = append(b.players, *p)
	return nil
}

func (b *Backend) RecordAction(a *core.ActionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return ErrNoMatch
	}
	b.actions = append(b.actions, *a)
	return nil
}

func (b *Backend) RecordKill(k *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return ErrNoMatch
	}
	b.kills = append(b.kills, *k)
	return nil
}

func (b *Backend) RecordEviction(e *core.EvictionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return ErrNoMatch
	}
	b.evictions = append(b.evictions, *e)
	return nil
}

// Export builds the current journal in the v1 format without writing it.
func (b *Backend) Export() v1.Export {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return v1.Build(b.matchData())
}

// Counts returns the number of recorded players, actions, kills and
// evictions.
func (b *Backend) Counts() (players, actions, kills, evictions int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.players), len(b.actions), len(b.kills), len(b.evictions)
}

// GetExportedFilePath returns the path of the last export, or "" if the
// match has not ended yet.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for the archive server.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}

func (b *Backend) matchData() *v1.MatchData {
	return &v1.MatchData{
		Match:     b.match,
		Result:    b.result,
		Players:   b.players,
		Actions:   b.actions,
		Kills:     b.kills,
		Evictions: b.evictions,
	}
}
