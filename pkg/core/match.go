// pkg/core/match.go
package core

import "time"

// Match describes one hosted game. A host process runs exactly one.
type Match struct {
	ID        string
	HostName  string
	GridSize  int
	StartTime time.Time
	Version   string
}

// MatchResult is recorded once the match ends. WinnerID is nil when nobody
// survived or the host shut down before the game was decided.
type MatchResult struct {
	MatchID  string
	EndTime  time.Time
	WinnerID *string
	Decided  bool
	Players  []Player
}

// UploadMetadata describes an exported match file for the archive server.
type UploadMetadata struct {
	MatchID       string
	HostName      string
	MatchDuration float64
	WinnerID      string
	PlayerCount   int
}
