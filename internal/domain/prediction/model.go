package prediction

import (
	"strings"

	"github.com/riskibarqy/propboard/internal/domain/team"
)

type Direction string

const (
	DirectionOver  Direction = "OVER"
	DirectionUnder Direction = "UNDER"
)

// ParseDirection accepts the spellings providers use for each side.
func ParseDirection(value string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "OVER", "O", "MORE", "HIGHER":
		return DirectionOver, true
	case "UNDER", "U", "LESS", "LOWER":
		return DirectionUnder, true
	default:
		return "", false
	}
}

// Record is one player prop after team resolution.
type Record struct {
	Player     string
	Team       team.ID
	Sport      string
	PropType   string
	Line       float64
	Direction  Direction
	Confidence float64
	Source     string
}
