package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"allday/app"
	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/run"
	"allday/internal"
	"allday/internal/packsim"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResults struct {
	results map[string]run.Result
}

func (s *stubResults) Lookup(_ context.Context, canonical string) (*run.Result, error) {
	r, ok := s.results[canonical]
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrResultNotFound, canonical)
	}
	return &r, nil
}

func (s *stubResults) Keys(_ context.Context, kind string) ([]string, error) {
	var out []string
	for k, r := range s.results {
		if kind == "" || r.Kind == kind {
			out = append(out, k)
		}
	}
	return out, nil
}

const bankID = core.BankID("0190b5a2-7c1e-7d3a-9f00-6c2f1e4b8a11")

type stubPacks struct{}

func bundle(index int) packsim.Bundle {
	return packsim.Bundle{
		Index:    index,
		PackType: "Standard",
		Rolled:   market.TierRare,
		Items: []packsim.Item{
			{MarketplaceID: "m1", Tier: market.TierCommon, Price: 4},
			{MarketplaceID: "m2", Tier: market.TierRare, Price: 60},
		},
		Total: 64,
	}
}

func (stubPacks) Draw(packType string) (*app.Draw, error) {
	if packType != "Standard" {
		return nil, fmt.Errorf("%w %q", core.ErrUnknownPackType, packType)
	}
	return &app.Draw{BankID: bankID, Bundle: bundle(3), Hit: "Rare", Cost: 59, Profit: 5}, nil
}

func (p stubPacks) DrawAt(packType string, index int) (*app.Draw, error) {
	if index >= 10 {
		return nil, fmt.Errorf("%w: %s bundle %d", core.ErrDrawNotFound, packType, index)
	}
	d, err := p.Draw(packType)
	if err != nil {
		return nil, err
	}
	d.Bundle = bundle(index)
	return d, nil
}

func (p stubPacks) BankDraw(_ context.Context, id core.BankID, index int) (*app.Draw, error) {
	if id != bankID {
		return nil, core.ErrDrawNotFound
	}
	return p.DrawAt("Standard", index)
}

func (stubPacks) Values() []app.PackValue {
	return []app.PackValue{{PackType: "Standard", Cost: 59}}
}

func newTestServer() *Server {
	results := &stubResults{results: map[string]run.Result{
		"summary--date_range=All_dates--mode=overall": {
			Key:     "summary--date_range=All_dates--mode=overall",
			Kind:    run.KindSummary,
			Payload: json.RawMessage(`{"mode":"overall","sales_count":12}`),
		},
	}}
	return NewServer(results, stubPacks{}, internal.NewNopLogger())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)

	get(t, s, "/packs/Standard/draw")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "allday_pack_draws_total")
	assert.Contains(t, rec.Body.String(), `route="/packs/:type/draw"`)
}

func TestGetResult(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/results/summary--date_range=All_dates--mode=overall")
	require.Equal(t, http.StatusOK, rec.Code)
	var res run.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, run.KindSummary, res.Kind)
	assert.JSONEq(t, `{"mode":"overall","sales_count":12}`, string(res.Payload))

	rec = get(t, s, "/results/summary--date_range=nowhere--mode=overall")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/results/").Code)

	rec = get(t, s, "/keys?kind=summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestDrawRoutes(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"random draw", "/packs/Standard/draw", http.StatusOK, `"rolled_tier":"RARE"`},
		{"unknown pack type", "/packs/Mega/draw", http.StatusNotFound, "UNKNOWN_PACK_TYPE"},
		{"draw by index", "/packs/Standard/draws/7", http.StatusOK, `"index":7`},
		{"index out of range", "/packs/Standard/draws/10", http.StatusNotFound, "NOT_FOUND"},
		{"bad index", "/packs/Standard/draws/-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"bank draw", "/banks/" + bankID.String() + "/draws/2", http.StatusOK, `"index":2`},
		{"bad bank id", "/banks/not-a-uuid/draws/2", http.StatusBadRequest, "INVALID_INPUT"},
		{"pack values", "/packs", http.StatusOK, `"pack_type":"Standard"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), tt.body), rec.Body.String())
		})
	}
}
