package httpapi

import (
	"time"

	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/domain/sourcehealth"
	"github.com/riskibarqy/propboard/internal/usecase"
)

type propDTO struct {
	Player     string  `json:"player"`
	Team       string  `json:"team"`
	Sport      string  `json:"sport"`
	PropType   string  `json:"propType"`
	Line       float64 `json:"line"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Tier       string  `json:"tier"`
	Source     string  `json:"source"`
}

type propsByTierDTO struct {
	TopPicks  []propDTO `json:"topPicks"`
	GoodValue []propDTO `json:"goodValue"`
	Leans     []propDTO `json:"leans"`
	Risky     []propDTO `json:"risky"`
}

type sourceStatusDTO struct {
	Successful  []string `json:"successful"`
	RateLimited []string `json:"rateLimited"`
	Errored     []string `json:"errored"`
}

type aggregateDTO struct {
	Sport          string                 `json:"sport"`
	GeneratedAt    time.Time              `json:"generatedAt"`
	RunID          string                 `json:"runId"`
	Usable         bool                   `json:"usable"`
	PropsByTier    propsByTierDTO         `json:"propsByTier"`
	GeneratedProps []propDTO              `json:"generatedProps"`
	SourceStatus   sourceStatusDTO        `json:"sourceStatus"`
	Providers      []usecase.ProviderRun  `json:"providers"`
	Stats          usecase.AggregateStats `json:"stats"`
}

type multiAggregateDTO struct {
	Results []aggregateDTO `json:"results"`
}

type providerHealthDTO struct {
	ProviderID          string     `json:"providerId"`
	LastOutcome         string     `json:"lastOutcome,omitempty"`
	LastCheckedAt       *time.Time `json:"lastCheckedAt,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Circuit             string     `json:"circuit"`
	Registered          bool       `json:"registered"`
}

type sourceHealthDTO struct {
	SourceStatus sourceStatusDTO     `json:"sourceStatus"`
	Providers    []providerHealthDTO `json:"providers"`
}

func propToDTO(p prediction.Record) propDTO {
	return propDTO{
		Player:     p.Player,
		Team:       p.Team.String(),
		Sport:      p.Sport,
		PropType:   p.PropType,
		Line:       p.Line,
		Direction:  string(p.Direction),
		Confidence: p.Confidence,
		Tier:       string(prediction.TierFor(p.Confidence)),
		Source:     p.Source,
	}
}

func propsToDTO(items []prediction.Record) []propDTO {
	out := make([]propDTO, 0, len(items))
	for _, item := range items {
		out = append(out, propToDTO(item))
	}
	return out
}

func sourceStatusToDTO(s sourcehealth.Snapshot) sourceStatusDTO {
	return sourceStatusDTO{
		Successful:  nonNil(s.Successful),
		RateLimited: nonNil(s.RateLimited),
		Errored:     nonNil(s.Errored),
	}
}

func aggregateToDTO(result usecase.AggregateResult) aggregateDTO {
	providers := result.Providers
	if providers == nil {
		providers = []usecase.ProviderRun{}
	}
	return aggregateDTO{
		Sport:       result.Sport,
		GeneratedAt: result.GeneratedAt,
		RunID:       result.RunID,
		Usable:      result.Usable,
		PropsByTier: propsByTierDTO{
			TopPicks:  propsToDTO(result.ByTier.TopPicks),
			GoodValue: propsToDTO(result.ByTier.GoodValue),
			Leans:     propsToDTO(result.ByTier.Leans),
			Risky:     propsToDTO(result.ByTier.Risky),
		},
		GeneratedProps: propsToDTO(result.Predictions),
		SourceStatus:   sourceStatusToDTO(result.SourceStatus),
		Providers:      providers,
		Stats:          result.Stats,
	}
}

func sourceHealthToDTO(report usecase.HealthReport) sourceHealthDTO {
	providers := make([]providerHealthDTO, 0, len(report.Providers))
	for _, item := range report.Providers {
		dto := providerHealthDTO{
			ProviderID:          item.ProviderID,
			LastOutcome:         string(item.LastOutcome),
			ConsecutiveFailures: item.ConsecutiveFailures,
			Circuit:             string(item.Circuit),
			Registered:          item.Registered,
		}
		if !item.LastCheckedAt.IsZero() {
			checked := item.LastCheckedAt
			dto.LastCheckedAt = &checked
		}
		providers = append(providers, dto)
	}
	return sourceHealthDTO{
		SourceStatus: sourceStatusToDTO(report.Snapshot),
		Providers:    providers,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// AggregateDocument renders results in the shape served by /v1/props.
func AggregateDocument(results []usecase.AggregateResult) any {
	doc := multiAggregateDTO{Results: make([]aggregateDTO, 0, len(results))}
	for _, result := range results {
		doc.Results = append(doc.Results, aggregateToDTO(result))
	}
	return doc
}
