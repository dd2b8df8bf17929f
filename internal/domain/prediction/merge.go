package prediction

import (
	"strings"

	"github.com/riskibarqy/propboard/internal/domain/team"
)

type mergeKey struct {
	player    string
	team      team.ID
	propType  string
	line      float64
	direction Direction
}

func keyOf(p Record) mergeKey {
	return mergeKey{
		player:    strings.ToLower(strings.Join(strings.Fields(p.Player), " ")),
		team:      p.Team,
		propType:  strings.ToLower(strings.TrimSpace(p.PropType)),
		line:      p.Line,
		direction: p.Direction,
	}
}

// MergeDuplicates collapses the same prop reported by several providers.
// The highest confidence wins; on a tie the earlier record wins. The merged
// record keeps the slot of the first occurrence. It returns the merged list
// and how many records were folded away.
func MergeDuplicates(predictions []Record) ([]Record, int) {
	if len(predictions) < 2 {
		return predictions, 0
	}

	index := make(map[mergeKey]int, len(predictions))
	out := make([]Record, 0, len(predictions))
	for _, p := range predictions {
		k := keyOf(p)
		pos, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, p)
			continue
		}
		if p.Confidence > out[pos].Confidence {
			out[pos] = p
		}
	}
	return out, len(predictions) - len(out)
}
