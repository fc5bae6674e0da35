package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// SchemaVersion is stored in arena_infos and bumped on incompatible changes.
const SchemaVersion = 1

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&ArenaInfo{},
	&Match{},
	&Player{},
	&Action{},
	&KillEvent{},
	&EvictionEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ArenaInfo describes the database instance
type ArenaInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	Description   string `json:"description" gorm:"size:255"`
}

func (*ArenaInfo) TableName() string {
	return "arena_infos"
}

////////////////////////
// MATCH DATA
////////////////////////

// Match is one hosted game
type Match struct {
	gorm.Model
	MatchUUID string         `json:"matchId" gorm:"size:36;uniqueIndex:idx_match_uuid"`
	HostName  string         `json:"hostName" gorm:"size:127"`
	Version   string         `json:"version" gorm:"size:64"`
	GridSize  int            `json:"gridSize"`
	StartTime time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_match_start"`
	EndTime   sql.NullTime   `json:"endTime" gorm:"type:timestamptz"`
	WinnerID  sql.NullString `json:"winnerId" gorm:"size:64"`
	Decided   bool           `json:"decided"`

	Players   []Player
	Actions   []Action
	Kills     []KillEvent
	Evictions []EvictionEvent
}

func (*Match) TableName() string {
	return "matches"
}

// Player is one registered participant. Final* columns are filled in when
// the match ends.
type Player struct {
	ID        uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	JoinTime  time.Time    `json:"joinTime" gorm:"type:timestamptz;"`
	MatchID   uint         `json:"matchId" gorm:"index:idx_player_match_id"`
	Match     Match        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	PlayerID  string       `json:"playerId" gorm:"size:64;index:idx_player_player_id"`
	Symbol    string       `json:"symbol" gorm:"size:8"`
	IsHost    bool         `json:"isHost"`
	SpawnX    int          `json:"spawnX"`
	SpawnY    int          `json:"spawnY"`
	FinalX    int          `json:"finalX"`
	FinalY    int          `json:"finalY"`
	Health    int          `json:"health"`
	IsDead    bool         `json:"isDead"`
	DeathTime sql.NullTime `json:"deathTime" gorm:"type:timestamptz"`
}

func (*Player) TableName() string {
	return "players"
}

// Action is one resolved action message. Payload keeps the full message as
// JSON.
type Action struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time      `json:"time" gorm:"type:timestamptz;"`
	MatchID       uint           `json:"matchId" gorm:"index:idx_action_match_id"`
	Match         Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Seq           uint64         `json:"seq" gorm:"index:idx_action_seq"`
	SenderID      string         `json:"senderId" gorm:"size:64;index:idx_action_sender"`
	Action        string         `json:"action" gorm:"size:16"`
	Outcome       string         `json:"outcome" gorm:"size:16"`
	Reason        string         `json:"reason" gorm:"size:64"`
	LogicalClock  int            `json:"logicalClock"`
	SendTimestamp int64          `json:"sendTimestamp"`
	ActorX        int            `json:"actorX"`
	ActorY        int            `json:"actorY"`
	TargetHealth  sql.NullInt32  `json:"targetHealth" gorm:"default:NULL"`
	Payload       datatypes.JSON `json:"payload" gorm:"type:jsonb;default:'{}'"`
}

func (*Action) TableName() string {
	return "actions"
}

// KillEvent records a player reaching zero health
type KillEvent struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID  uint      `json:"matchId" gorm:"index:idx_killevent_match_id"`
	Match    Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Seq      uint64    `json:"seq"`
	KillerID string    `json:"killerId" gorm:"size:64;index:idx_killevent_killer"`
	VictimID string    `json:"victimId" gorm:"size:64;index:idx_killevent_victim"`
	Distance float64   `json:"distance"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

// EvictionEvent records an endpoint removed after a failed delivery
type EvictionEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID   uint      `json:"matchId" gorm:"index:idx_eviction_match_id"`
	Match     Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	PlayerID  string    `json:"playerId" gorm:"size:64"`
	Reason    string    `json:"reason" gorm:"size:255"`
	WasPlayer bool      `json:"wasPlayer"`
}

func (*EvictionEvent) TableName() string {
	return "eviction_events"
}
