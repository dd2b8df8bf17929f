package propmarket

import (
	"context"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/propboard/external/providerhttp"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/usecase"
)

const (
	ProviderID     = "propmarket"
	DefaultBaseURL = "https://api.propmarket.io"
	TokenHeader    = "X-Api-Key"
)

var supportedSports = map[string]struct{}{
	"nba": {},
	"nfl": {},
	"nhl": {},
	"mlb": {},
}

// Client reads player projections from the prop market API.
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
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = TokenHeader
	}
	return &Client{http: providerhttp.New(cfg)}
}

func (c *Client) ID() string                { return c.http.ProviderID() }
func (c *Client) Kind() usecase.PayloadKind { return usecase.PayloadPredictions }
func (c *Client) Timeout() time.Duration    { return c.http.Timeout() }

func (c *Client) Fetch(ctx context.Context, sport string) (usecase.SourcePayload, error) {
	sport = usecase.NormalizeSport(sport)
	if _, ok := supportedSports[sport]; !ok {
		return usecase.SourcePayload{}, c.http.Unsupported(sport)
	}

	var resp projectionsResponse
	raw, err := c.http.GetJSON(ctx, providerhttp.SportPath("v1", "projections"), url.Values{"sport": {sport}}, &resp)
	if err != nil {
		return usecase.SourcePayload{}, err
	}

	preds := make([]usecase.ExternalPrediction, 0, len(resp.Data))
	for _, item := range resp.Data {
		direction, ok := prediction.ParseDirection(item.Side)
		if !ok {
			return usecase.SourcePayload{}, &usecase.ProviderError{
				Kind:       usecase.ProviderErrorBadResponse,
				ProviderID: c.ID(),
				Err:        crerr.Newf("projection %s has unknown side %q", item.ID, item.Side),
			}
		}
		preds = append(preds, usecase.ExternalPrediction{
			Player:     strings.TrimSpace(item.Player.Name),
			Team:       strings.TrimSpace(item.Player.Team),
			PropType:   strings.TrimSpace(item.StatType),
			Line:       *item.Line,
			Direction:  direction,
			Confidence: *item.Confidence,
		})
	}

	return usecase.SourcePayload{
		Kind:        usecase.PayloadPredictions,
		TeamFormat:  usecase.TeamFormatAbbreviation,
		Predictions: preds,
		Raw:         []usecase.RawPayload{raw},
	}, nil
}
