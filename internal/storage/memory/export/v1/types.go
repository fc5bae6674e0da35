// Package v1 contains the v1 export format for arena match journals.
// Events are compact arrays so a replay viewer can stream them by sequence.
package v1

// Export is the root JSON structure for the v1 format.
type Export struct {
	FormatVersion int      `json:"formatVersion"`
	MatchID       string   `json:"matchId"`
	HostName      string   `json:"hostName"`
	HostVersion   string   `json:"hostVersion"`
	GridSize      int      `json:"gridSize"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime,omitempty"`
	Duration      float64  `json:"duration"`
	WinnerID      *string  `json:"winnerId"`
	Decided       bool     `json:"decided"`
	EndSeq        uint64   `json:"endSeq"`
	Players       []Player `json:"players"`
	Events        [][]any  `json:"events"`
}

// Player is one participant with its movement track.
type Player struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	IsHost      bool    `json:"isHost"`
	FinalHealth int     `json:"finalHealth"`
	IsDead      bool    `json:"isDead"`
	DeathSeq    uint64  `json:"deathSeq,omitempty"`
	Evicted     bool    `json:"evicted,omitempty"`
	Positions   [][]any `json:"positions"` // [seq, x, y]
}
