package propgen

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/propboard/external/providerhttp"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/usecase"
)

const (
	ProviderID     = "propgen"
	DefaultBaseURL = "http://propgen.internal:8080"
)

// Client reads the in-house prop generator. It spells teams by full name,
// so the orchestrator canonicalizes them instead of resolving abbreviations.
type Client struct {
	http *providerhttp.Client
}

var _ usecase.Source = (*Client)(nil)

func NewClient(cfg providerhttp.Config) *Client {
	if cfg.ProviderID == "" {
		cfg.ProviderID = ProviderID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{http: providerhttp.New(cfg)}
}

func (c *Client) ID() string                { return c.http.ProviderID() }
func (c *Client) Kind() usecase.PayloadKind { return usecase.PayloadPredictions }
func (c *Client) Timeout() time.Duration    { return c.http.Timeout() }

func (c *Client) Fetch(ctx context.Context, sport string) (usecase.SourcePayload, error) {
	sport = usecase.NormalizeSport(sport)
	if sport == "" {
		return usecase.SourcePayload{}, c.http.Unsupported(sport)
	}

	var resp propsResponse
	raw, err := c.http.GetJSON(ctx, providerhttp.SportPath("props", sport), nil, &resp)
	if err != nil {
		return usecase.SourcePayload{}, err
	}
	if resp.Sport != "" && usecase.NormalizeSport(resp.Sport) != sport {
		return usecase.SourcePayload{}, &usecase.ProviderError{
			Kind:       usecase.ProviderErrorBadResponse,
			ProviderID: c.ID(),
			Err:        crerr.Newf("asked for %s props, got %s", sport, resp.Sport),
		}
	}

	preds := make([]usecase.ExternalPrediction, 0, len(resp.Props))
	for i, item := range resp.Props {
		direction, ok := prediction.ParseDirection(item.Pick)
		if !ok {
			return usecase.SourcePayload{}, &usecase.ProviderError{
				Kind:       usecase.ProviderErrorBadResponse,
				ProviderID: c.ID(),
				Err:        crerr.Newf("prop %d has unknown pick %q", i, item.Pick),
			}
		}
		preds = append(preds, usecase.ExternalPrediction{
			Player:     strings.TrimSpace(item.PlayerName),
			Team:       strings.TrimSpace(item.TeamName),
			PropType:   strings.TrimSpace(item.Market),
			Line:       *item.Line,
			Direction:  direction,
			Confidence: *item.Confidence,
		})
	}

	return usecase.SourcePayload{
		Kind:        usecase.PayloadPredictions,
		TeamFormat:  usecase.TeamFormatName,
		Predictions: preds,
		Raw:         []usecase.RawPayload{raw},
	}, nil
}
