package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/config"
	"auto_trader/internal/exchange"
	"auto_trader/internal/models"
	"auto_trader/internal/notify"
	"auto_trader/internal/risk"
	"auto_trader/internal/runner"
)

// Шлюз с кэшем последних цен; остальной Gateway в этих тестах не дергается.
type pricedGateway struct {
	exchange.Gateway
	prices map[string]float64
}

func (g *pricedGateway) LastPrice(symbol string) float64 { return g.prices[symbol] }

func newTestMux(t *testing.T, gw exchange.Gateway) (*http.ServeMux, *risk.Manager) {
	t.Helper()
	cfg := &config.Config{
		Symbols: []string{"BTC-USDT"},
		Trading: config.TradingConfig{Enabled: false, Frequency: 1},
		Risk:    config.RiskConfig{MaxPositionSize: 1000},
	}
	rm := risk.NewManager(cfg.Risk)
	b := runner.New(cfg, gw, nil, rm, nil, notify.NewStdout())
	return NewMux(cfg, b, rm, gw, nil), rm
}

func TestLivez(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzNotRunning(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzReportsState(t *testing.T) {
	mux, rm := newTestMux(t, nil)
	require.NoError(t, rm.OpenPosition("BTC-USDT", models.PositionLong, 1, 100))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body["state"])
	assert.EqualValues(t, 1, body["positions"])
	assert.EqualValues(t, 1, body["dailyTrades"])
}

func TestHealthzReportsLastPrices(t *testing.T) {
	gw := &pricedGateway{prices: map[string]float64{"BTC-USDT": 101.5}}
	mux, _ := newTestMux(t, gw)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))

	prices, ok := body["lastPrices"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 101.5, prices["BTC-USDT"])
}
