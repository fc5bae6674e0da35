// Package convert maps between core journal types and GORM models
package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gridclash/arena/internal/model"
	"github.com/gridclash/arena/pkg/core"
	"gorm.io/datatypes"
)

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

// messageToJSON stores the whole action message; falls back to an empty
// object so the column default holds.
func messageToJSON(m core.ActionMessage) datatypes.JSON {
	data, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match.
// core.Match.ID maps to MatchUUID; the row ID is assigned by the database.
func CoreToMatch(m core.Match) model.Match {
	return model.Match{
		MatchUUID: m.ID,
		HostName:  m.HostName,
		Version:   m.Version,
		GridSize:  m.GridSize,
		StartTime: m.StartTime,
	}
}

// ApplyResult copies the end-of-match fields onto an existing row.
func ApplyResult(m *model.Match, r core.MatchResult) {
	m.EndTime = nullTime(r.EndTime)
	m.WinnerID = nullString(r.WinnerID)
	m.Decided = r.Decided
}

// CoreToPlayer converts a freshly registered player. The spawn cell is
// also the initial final cell.
func CoreToPlayer(p core.Player, joined time.Time) model.Player {
	return model.Player{
		JoinTime:  joined,
		PlayerID:  p.ID,
		Symbol:    p.Symbol,
		IsHost:    p.IsHost,
		SpawnX:    p.X,
		SpawnY:    p.Y,
		FinalX:    p.X,
		FinalY:    p.Y,
		Health:    p.Health,
		IsDead:    p.IsDead,
		DeathTime: nullTime(p.DeathTime),
	}
}

// CoreToAction converts an action record.
func CoreToAction(a core.ActionRecord) model.Action {
	return model.Action{
		Time:          a.Time,
		Seq:           a.Seq,
		SenderID:      a.Message.SenderID,
		Action:        string(a.Message.Action),
		Outcome:       string(a.Outcome),
		Reason:        a.Reason,
		LogicalClock:  a.Message.LogicalClock,
		SendTimestamp: a.Message.SendTimestamp,
		ActorX:        a.ActorX,
		ActorY:        a.ActorY,
		TargetHealth:  nullInt(a.TargetHealth),
		Payload:       messageToJSON(a.Message),
	}
}

func CoreToKillEvent(k core.KillEvent) model.KillEvent {
	return model.KillEvent{
		Time:     k.Time,
		Seq:      k.Seq,
		KillerID: k.KillerID,
		VictimID: k.VictimID,
		Distance: k.Distance,
	}
}

func CoreToEvictionEvent(e core.EvictionEvent) model.EvictionEvent {
	return model.EvictionEvent{
		Time:      e.Time,
		PlayerID:  e.PlayerID,
		Reason:    e.Reason,
		WasPlayer: e.WasPlayer,
	}
}
