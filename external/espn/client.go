package espn

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/propboard/external/providerhttp"
	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/usecase"
)

const (
	ProviderID     = "espn"
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports"
)

var sportPaths = map[string][2]string{
	"nba": {"basketball", "nba"},
	"nfl": {"football", "nfl"},
	"nhl": {"hockey", "nhl"},
	"mlb": {"baseball", "mlb"},
}

// Client reads ESPN scoreboards as a schedule source.
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
func (c *Client) Kind() usecase.PayloadKind { return usecase.PayloadSchedule }
func (c *Client) Timeout() time.Duration    { return c.http.Timeout() }

func (c *Client) Fetch(ctx context.Context, sport string) (usecase.SourcePayload, error) {
	path, ok := sportPaths[usecase.NormalizeSport(sport)]
	if !ok {
		return usecase.SourcePayload{}, c.http.Unsupported(sport)
	}

	var resp scoreboardResponse
	raw, err := c.http.GetJSON(ctx, providerhttp.SportPath(path[0], path[1], "scoreboard"), nil, &resp)
	if err != nil {
		return usecase.SourcePayload{}, err
	}

	games := make([]usecase.ExternalGame, 0, len(resp.Events))
	for _, ev := range resp.Events {
		comp := ev.Competitions[0]
		item := usecase.ExternalGame{
			ExternalID: ev.ID,
			Status:     mapStatus(ev, comp),
			StartTime:  parseEventTime(ev.Date),
		}
		for _, side := range comp.Competitors {
			score := parseScore(side.Score)
			if side.HomeAway == "home" {
				item.HomeTeam = side.Team.Abbreviation
				item.HomeScore = score
			} else {
				item.AwayTeam = side.Team.Abbreviation
				item.AwayScore = score
			}
		}
		games = append(games, item)
	}

	return usecase.SourcePayload{
		Kind:       usecase.PayloadSchedule,
		TeamFormat: usecase.TeamFormatAbbreviation,
		Games:      games,
		Raw:        []usecase.RawPayload{raw},
	}, nil
}

// mapStatus reports special events first so exhibitions never count as
// final, then trusts the completed flag over the status name.
func mapStatus(ev event, comp competition) game.Status {
	if ev.isSpecial(comp) {
		return game.StatusSpecialEvent
	}
	if comp.Status.Type.Completed {
		return game.StatusFinal
	}
	if strings.EqualFold(comp.Status.Type.State, "in") {
		return game.StatusInProgress
	}
	return game.NormalizeStatus(comp.Status.Type.Name)
}

func parseScore(raw string) int {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || score < 0 {
		return 0
	}
	return score
}
