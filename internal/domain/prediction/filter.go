package prediction

import (
	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/domain/team"
)

// FilterCompleted drops predictions for teams whose game is final.
//
// Missing schedule data means nothing is known to be over, so an empty
// games slice returns the input as is. Special events never count as final.
func FilterCompleted(predictions []Record, games []game.Record) []Record {
	if len(games) == 0 {
		return predictions
	}

	finished := make(map[team.ID]struct{}, len(games)*2)
	for _, g := range games {
		if !g.IsFinal() {
			continue
		}
		if g.HomeTeam != "" {
			finished[g.HomeTeam] = struct{}{}
		}
		if g.AwayTeam != "" {
			finished[g.AwayTeam] = struct{}{}
		}
	}
	if len(finished) == 0 {
		return predictions
	}

	out := make([]Record, 0, len(predictions))
	for _, p := range predictions {
		if _, done := finished[p.Team]; done {
			continue
		}
		out = append(out, p)
	}
	return out
}
