package propmarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/propboard/external/providerhttp"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/projections" || r.Header.Get(TokenHeader) != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("sport") != "nba" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchProjections(t *testing.T) {
	t.Parallel()

	server := newServer(t, `{"data":[
		{"id":"p1","player":{"name":" Jalen Brunson ","team":"NY"},"stat_type":"Points","line":27.5,"side":"over","confidence":81},
		{"id":"p2","player":{"name":"LeBron James","team":"LAL"},"stat_type":"Assists","line":7.5,"side":"u","confidence":0}
	]}`)

	client := NewClient(providerhttp.Config{BaseURL: server.URL, Token: "key", Timeout: time.Second})
	payload, err := client.Fetch(context.Background(), "NBA")
	require.NoError(t, err)

	assert.Equal(t, usecase.PayloadPredictions, payload.Kind)
	assert.Equal(t, usecase.TeamFormatAbbreviation, payload.TeamFormat)
	require.Len(t, payload.Predictions, 2)
	require.Len(t, payload.Raw, 1)

	first := payload.Predictions[0]
	assert.Equal(t, "Jalen Brunson", first.Player)
	assert.Equal(t, "NY", first.Team)
	assert.Equal(t, "Points", first.PropType)
	assert.Equal(t, 27.5, first.Line)
	assert.Equal(t, prediction.DirectionOver, first.Direction)
	assert.Equal(t, 81.0, first.Confidence)

	assert.Equal(t, prediction.DirectionUnder, payload.Predictions[1].Direction)
	assert.Equal(t, 0.0, payload.Predictions[1].Confidence)
}

func TestClient_FetchRejectsBadProjections(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"confidence above range": `{"data":[{"id":"p1","player":{"name":"A","team":"NY"},"stat_type":"Points","line":1.5,"side":"over","confidence":140}]}`,
		"missing confidence":     `{"data":[{"id":"p1","player":{"name":"A","team":"NY"},"stat_type":"Points","line":1.5,"side":"over"}]}`,
		"unknown side":           `{"data":[{"id":"p1","player":{"name":"A","team":"NY"},"stat_type":"Points","line":1.5,"side":"push","confidence":60}]}`,
		"missing data":           `{}`,
	}

	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := newServer(t, body)
			client := NewClient(providerhttp.Config{BaseURL: server.URL, Token: "key", Timeout: time.Second})
			_, err := client.Fetch(context.Background(), "nba")

			var providerErr *usecase.ProviderError
			require.True(t, errors.As(err, &providerErr), "got %v", err)
			assert.Equal(t, usecase.ProviderErrorBadResponse, providerErr.Kind)
			assert.Equal(t, ProviderID, providerErr.ProviderID)
		})
	}
}

func TestClient_FetchRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(providerhttp.Config{BaseURL: server.URL, Timeout: time.Second})
	_, err := client.Fetch(context.Background(), "nhl")

	var providerErr *usecase.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, usecase.ProviderErrorRateLimited, providerErr.Kind)
	assert.Equal(t, "RATE_LIMITED", string(providerErr.Kind.Outcome()))
}
