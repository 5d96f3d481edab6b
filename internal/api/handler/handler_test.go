package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapstream/internal/api"
	"zapstream/internal/fiat"
	"zapstream/internal/grid"
	"zapstream/internal/models"
)

type stubPrices struct{}

func (stubPrices) CurrentPrices(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{"USD": 50000}, nil
}

func (stubPrices) HistoricalPrice(ctx context.Context, ts int64, currency string) (float64, error) {
	return 25000, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *api.Store) {
	t.Helper()

	store := api.NewStore()
	converter := fiat.NewConverter(stubPrices{}, []string{"USD"})
	converter.SetPrice("USD", 50000)
	t.Cleanup(converter.Stop)

	mux := http.NewServeMux()
	New(store, converter).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var health HealthResponse
	resp := getJSON(t, srv.URL+"/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
}

func TestLeaderboardEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	store.OnLeaderboard([]models.LeaderboardEntry{
		{Rank: 1, PayerPubkey: "p1", AmountSats: 2100, DisplayName: "Alice"},
		{Rank: 2, PayerPubkey: "p2", AmountSats: 500, DisplayName: "Bob"},
	})

	var entries []models.LeaderboardEntry
	resp := getJSON(t, srv.URL+"/leaderboard?n=1", &entries)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice", entries[0].DisplayName)

	resp = getJSON(t, srv.URL+"/leaderboard?n=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGridEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	store.OnGrid(grid.Plan{
		Rows:   []grid.Row{{Index: 0, Capacity: 1, Members: []string{"z1"}}},
		Podium: map[string]int{"z1": 1},
	})

	var plan grid.Plan
	getJSON(t, srv.URL+"/grid", &plan)
	require.Len(t, plan.Rows, 1)
	assert.Equal(t, []string{"z1"}, plan.Rows[0].Members)
	assert.Equal(t, 1, plan.Podium["z1"])
}

func TestSessionEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	store.OnSession(models.SessionView{Target: "abc123", BacklogComplete: true, Records: 42})

	var view models.SessionView
	resp := getJSON(t, srv.URL+"/session", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc123", view.Target)
	assert.True(t, view.BacklogComplete)
	assert.Equal(t, 42, view.Records)
}

func TestConvertEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var conv ConvertResponse
	resp := getJSON(t, srv.URL+"/convert?amount=100000000&currency=usd", &conv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50000.00 USD", conv.Fiat)
	assert.Nil(t, conv.Historical)

	resp = getJSON(t, srv.URL+"/convert?amount=100000000&currency=USD&timestamp=1700000000", &conv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, conv.Historical)
	assert.Equal(t, "25000.00 USD", conv.Historical.Historical)
	assert.InDelta(t, 100.0, conv.Historical.ChangePercent, 0.001)

	resp = getJSON(t, srv.URL+"/convert?amount=-5&currency=USD", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/convert?amount=1000", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConvertUnknownCurrencyDegrades(t *testing.T) {
	srv, _ := newTestServer(t)

	var conv ConvertResponse
	resp := getJSON(t, srv.URL+"/convert?amount=1000&currency=CHF", &conv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, conv.Fiat, "missing price leaves fiat blank; sats stay authoritative")
	assert.Equal(t, int64(1000), conv.AmountSats)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/leaderboard", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/leaderboard", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
