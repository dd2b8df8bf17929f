package espn

import (
	"strings"
	"time"
)

// ESPN publishes all-star weekends under their own season type.
const seasonTypeAllStar = 4

type scoreboardResponse struct {
	Events []event `json:"events" validate:"required,dive"`
}

type event struct {
	ID           string        `json:"id" validate:"required"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	Season       eventSeason   `json:"season"`
	Competitions []competition `json:"competitions" validate:"required,min=1,dive"`
}

type eventSeason struct {
	Year int    `json:"year"`
	Type int    `json:"type"`
	Slug string `json:"slug"`
}

type competition struct {
	ID          string          `json:"id"`
	Type        competitionType `json:"type"`
	Competitors []competitor    `json:"competitors" validate:"required,len=2,dive"`
	Status      status          `json:"status"`
}

type competitionType struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
}

type competitor struct {
	ID       string `json:"id"`
	HomeAway string `json:"homeAway" validate:"required,oneof=home away"`
	Score    string `json:"score"`
	Team     team   `json:"team"`
}

type team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation" validate:"required"`
	DisplayName  string `json:"displayName"`
}

type status struct {
	Period int        `json:"period"`
	Type   statusType `json:"type"`
}

type statusType struct {
	Name      string `json:"name" validate:"required"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

func (e event) isSpecial(c competition) bool {
	if e.Season.Type == seasonTypeAllStar {
		return true
	}
	slug := strings.ToLower(e.Season.Slug)
	if strings.Contains(slug, "all-star") || strings.Contains(slug, "exhibition") {
		return true
	}
	switch strings.ToUpper(strings.TrimSpace(c.Type.Abbreviation)) {
	case "ALLSTAR", "EXH":
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), "all-star")
}

// parseEventTime handles ESPN's minute-precision timestamps.
func parseEventTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04Z"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
