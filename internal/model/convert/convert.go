package convert

import (
	"encoding/json"

	"github.com/gridclash/arena/internal/model"
	"github.com/gridclash/arena/pkg/core"
)

// MatchToCore converts a GORM Match back to a core.Match.
func MatchToCore(m model.Match) core.Match {
	return core.Match{
		ID:        m.MatchUUID,
		HostName:  m.HostName,
		GridSize:  m.GridSize,
		StartTime: m.StartTime,
		Version:   m.Version,
	}
}

// MatchToResult returns the recorded result, or nil if the match never
// ended.
func MatchToResult(m model.Match, players []model.Player) *core.MatchResult {
	if !m.EndTime.Valid {
		return nil
	}
	res := &core.MatchResult{
		MatchID: m.MatchUUID,
		EndTime: m.EndTime.Time,
		Decided: m.Decided,
	}
	if m.WinnerID.Valid {
		w := m.WinnerID.String
		res.WinnerID = &w
	}
	for _, p := range players {
		res.Players = append(res.Players, FinalPlayerToCore(p))
	}
	return res
}

// PlayerToCore returns the player as registered, at the spawn cell.
func PlayerToCore(p model.Player) core.Player {
	return core.Player{
		ID:     p.PlayerID,
		X:      p.SpawnX,
		Y:      p.SpawnY,
		Health: core.MaxHealth,
		IsHost: p.IsHost,
		Symbol: p.Symbol,
	}
}

// FinalPlayerToCore returns the player as recorded at the end of the match.
func FinalPlayerToCore(p model.Player) core.Player {
	out := core.Player{
		ID:     p.PlayerID,
		X:      p.FinalX,
		Y:      p.FinalY,
		Health: p.Health,
		IsHost: p.IsHost,
		Symbol: p.Symbol,
		IsDead: p.IsDead,
	}
	if p.DeathTime.Valid {
		out.DeathTime = p.DeathTime.Time
	}
	return out
}

// ActionToCore converts a GORM Action to a core.ActionRecord. The message
// comes from the JSON payload when present, otherwise from the columns.
func ActionToCore(a model.Action) core.ActionRecord {
	rec := core.ActionRecord{
		Time:    a.Time,
		Seq:     a.Seq,
		Outcome: core.ActionOutcome(a.Outcome),
		Reason:  a.Reason,
		ActorX:  a.ActorX,
		ActorY:  a.ActorY,
		Message: core.ActionMessage{
			SenderID:      a.SenderID,
			Action:        core.Action(a.Action),
			LogicalClock:  a.LogicalClock,
			SendTimestamp: a.SendTimestamp,
		},
	}
	if len(a.Payload) > 0 {
		var msg core.ActionMessage
		if err := json.Unmarshal(a.Payload, &msg); err == nil && msg.SenderID != "" {
			rec.Message = msg
		}
	}
	if a.TargetHealth.Valid {
		hp := int(a.TargetHealth.Int32)
		rec.TargetHealth = &hp
	}
	return rec
}

func KillEventToCore(k model.KillEvent) core.KillEvent {
	return core.KillEvent{
		Time:     k.Time,
		Seq:      k.Seq,
		KillerID: k.KillerID,
		VictimID: k.VictimID,
		Distance: k.Distance,
	}
}

func EvictionEventToCore(e model.EvictionEvent) core.EvictionEvent {
	return core.EvictionEvent{
		Time:      e.Time,
		PlayerID:  e.PlayerID,
		Reason:    e.Reason,
		WasPlayer: e.WasPlayer,
	}
}
