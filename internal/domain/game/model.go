package game

import (
	"strings"
	"time"

	"github.com/riskibarqy/propboard/internal/domain/team"
)

type Status string

const (
	StatusScheduled    Status = "SCHEDULED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusFinal        Status = "FINAL"
	StatusSpecialEvent Status = "SPECIAL_EVENT"
)

// Record is one game as reported by a schedule provider poll. It is
// replaced wholesale by the next poll, never updated in place.
type Record struct {
	GameID    string
	Sport     string
	HomeTeam  team.ID
	AwayTeam  team.ID
	HomeScore int
	AwayScore int
	Status    Status
	StartTime time.Time
}

// NormalizeStatus maps upstream status names to a Status. Unknown or blank
// values are treated as scheduled.
func NormalizeStatus(value string) Status {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "FINAL", "STATUS_FINAL", "FINISHED", "FT", "F", "FINAL/OT", "FINAL/SO", "POST":
		return StatusFinal
	case "IN_PROGRESS", "STATUS_IN_PROGRESS", "LIVE", "IN", "HALFTIME", "STATUS_HALFTIME", "END_PERIOD", "STATUS_END_PERIOD":
		return StatusInProgress
	case "SPECIAL_EVENT", "EXHIBITION", "ALL_STAR":
		return StatusSpecialEvent
	default:
		return StatusScheduled
	}
}

func (r Record) IsFinal() bool {
	return r.Status == StatusFinal
}
