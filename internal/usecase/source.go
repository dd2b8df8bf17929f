package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
)

type PayloadKind string

const (
	PayloadSchedule    PayloadKind = "schedule"
	PayloadPredictions PayloadKind = "predictions"
)

// TeamFormat says how a source spells teams.
type TeamFormat string

const (
	TeamFormatAbbreviation TeamFormat = "abbreviation"
	TeamFormatName         TeamFormat = "name"
)

// Source is one provider adapter. Fetch must respect ctx, must not retry,
// and must return a *ProviderError on failure.
type Source interface {
	ID() string
	Kind() PayloadKind
	Timeout() time.Duration
	Fetch(ctx context.Context, sport string) (SourcePayload, error)
}

// SourcePayload is a decoded provider response. Team fields are still in
// the provider's own spelling.
type SourcePayload struct {
	Kind        PayloadKind
	TeamFormat  TeamFormat
	Games       []ExternalGame
	Predictions []ExternalPrediction
	Raw         []RawPayload
}

type ExternalGame struct {
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	HomeScore  int
	AwayScore  int
	Status     game.Status
	StartTime  time.Time
}

type ExternalPrediction struct {
	Player     string
	Team       string
	PropType   string
	Line       float64
	Direction  prediction.Direction
	Confidence float64
}

// RawPayload is the undecoded body kept for the archive.
type RawPayload struct {
	URL       string
	Body      []byte
	FetchedAt time.Time
}
