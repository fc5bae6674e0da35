// internal/storage/storage.go
package storage

import "github.com/gridclash/arena/pkg/core"

// Backend is the match journal. The host writes to it as the match unfolds
// and never reads it back; errors are logged by the caller and never change
// game state.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(match *core.Match) error
	EndMatch(result *core.MatchResult) error

	// Roster
	AddPlayer(p *core.Player) error

	// Event recording
	RecordAction(a *core.ActionRecord) error
	RecordKill(k *core.KillEvent) error
	RecordEviction(e *core.EvictionEvent) error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for the match archive server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Nop discards everything. It is used when journaling is disabled.
type Nop struct{}

func (Nop) Init() error                             { return nil }
func (Nop) Close() error                            { return nil }
func (Nop) StartMatch(*core.Match) error            { return nil }
func (Nop) EndMatch(*core.MatchResult) error        { return nil }
func (Nop) AddPlayer(*core.Player) error            { return nil }
func (Nop) RecordAction(*core.ActionRecord) error   { return nil }
func (Nop) RecordKill(*core.KillEvent) error        { return nil }
func (Nop) RecordEviction(*core.EvictionEvent) error { return nil }
