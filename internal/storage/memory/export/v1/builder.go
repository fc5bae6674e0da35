package v1

import (
	"sort"
	"time"

	"github.com/gridclash/arena/pkg/core"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// MatchData contains all the data needed to build an export.
type MatchData struct {
	Match     *core.Match
	Result    *core.MatchResult
	Players   []core.Player // as registered, in registration order
	Actions   []core.ActionRecord
	Kills     []core.KillEvent
	Evictions []core.EvictionEvent
}

// Build creates an Export from the match data. Player tracks start at the
// spawn cell (seq 0) and gain an entry per applied move.
func Build(data *MatchData) Export {
	export := Export{
		FormatVersion: FormatVersion,
		Players:       make([]Player, 0, len(data.Players)),
		Events:        make([][]any, 0, len(data.Actions)+len(data.Kills)+len(data.Evictions)),
	}
	if data.Match != nil {
		export.MatchID = data.Match.ID
		export.HostName = data.Match.HostName
		export.HostVersion = data.Match.Version
		export.GridSize = data.Match.GridSize
		export.StartTime = formatTime(data.Match.StartTime)
	}

	index := make(map[string]int, len(data.Players))
	for _, p := range data.Players {
		index[p.ID] = len(export.Players)
		export.Players = append(export.Players, Player{
			ID:          p.ID,
			Symbol:      p.Symbol,
			IsHost:      p.IsHost,
			FinalHealth: p.Health,
			Positions:   [][]any{{uint64(0), p.X, p.Y}},
		})
	}

	actions := append([]core.ActionRecord(nil), data.Actions...)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Seq < actions[j].Seq })

	var maxSeq uint64
	for _, rec := range actions {
		maxSeq = max(maxSeq, rec.Seq)
		msg := rec.Message

		if rec.Outcome != core.OutcomeApplied {
			// [seq, "rejected", sender, action, reason]
			export.Events = append(export.Events, []any{rec.Seq, string(rec.Outcome), msg.SenderID, string(msg.Action), rec.Reason})
			continue
		}

		switch msg.Action {
		case core.ActionMove:
			if i, ok := index[msg.SenderID]; ok {
				export.Players[i].Positions = append(export.Players[i].Positions, []any{rec.Seq, rec.ActorX, rec.ActorY})
			}
		case core.ActionShoot, core.ActionHeal:
			// [seq, "shoot"|"heal", sender, target, targetHealth]
			health := -1
			if rec.TargetHealth != nil {
				health = *rec.TargetHealth
			}
			export.Events = append(export.Events, []any{rec.Seq, string(msg.Action), msg.SenderID, msg.TargetID, health})
		}
	}

	for _, k := range data.Kills {
		maxSeq = max(maxSeq, k.Seq)
		// [seq, "killed", victim, killer, distance]
		export.Events = append(export.Events, []any{k.Seq, "killed", k.VictimID, k.KillerID, k.Distance})
		if i, ok := index[k.VictimID]; ok {
			export.Players[i].IsDead = true
			export.Players[i].DeathSeq = k.Seq
			export.Players[i].FinalHealth = 0
		}
	}

	for _, e := range data.Evictions {
		// Evictions carry no sequence of their own; they land after the last
		// action resolved before them.
		export.Events = append(export.Events, []any{maxSeq, "evicted", e.PlayerID, e.Reason, e.WasPlayer})
		if i, ok := index[e.PlayerID]; ok && e.WasPlayer {
			export.Players[i].Evicted = true
		}
	}

	sort.SliceStable(export.Events, func(i, j int) bool {
		return export.Events[i][0].(uint64) < export.Events[j][0].(uint64)
	})
	export.EndSeq = maxSeq

	if data.Result != nil {
		export.EndTime = formatTime(data.Result.EndTime)
		export.WinnerID = data.Result.WinnerID
		export.Decided = data.Result.Decided
		if data.Match != nil && !data.Match.StartTime.IsZero() {
			export.Duration = data.Result.EndTime.Sub(data.Match.StartTime).Seconds()
		}
		for _, p := range data.Result.Players {
			if i, ok := index[p.ID]; ok {
				export.Players[i].FinalHealth = p.Health
				export.Players[i].IsDead = p.IsDead
			}
		}
	}

	return export
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
