package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backtestJSON struct {
	ID         string `json:"id"`
	StrategyID string `json:"strategy_id"`
	Locked     bool   `json:"locked"`
	Summary    struct {
		TotalTrades int    `json:"total_trades"`
		Wins        int    `json:"wins"`
		NetPnL      string `json:"net_pnl"`
	} `json:"summary"`
	Trades []struct {
		Symbol string `json:"symbol"`
		PnL    string `json:"pnl"`
	} `json:"trades"`
	Equity []struct {
		Equity string `json:"equity"`
	} `json:"equity_curve"`
}

func backtestBody() map[string]any {
	return map[string]any{
		"title":           "2024 H1",
		"period_start":    "2024-01-01T00:00:00Z",
		"period_end":      "2024-06-30T00:00:00Z",
		"initial_capital": "100000",
		"trades": []map[string]any{
			{
				"symbol": "BANKNIFTY24FEB45000PE", "side": "SELL", "quantity": 1,
				"entry_at": "2024-02-02T09:20:00Z", "exit_at": "2024-02-02T15:00:00Z",
				"entry_price": "200", "exit_price": "210",
			},
			{
				"symbol": "BANKNIFTY24JAN45000CE", "side": "BUY", "quantity": 2,
				"entry_at": "2024-01-05T09:20:00Z", "exit_at": "2024-01-05T15:00:00Z",
				"entry_price": "100", "exit_price": "120",
			},
		},
	}
}

func TestBacktestIsLockedUntilPaid(t *testing.T) {
	ts := newTestServer(t)
	const viewer = "auth0|viewer"
	strategyID := ts.strategyID("Iron Condor")
	path := "/api/strategies/" + strategyID + "/backtests"

	assert.Equal(t, http.StatusForbidden, ts.do("POST", path, viewer, backtestBody()).Code)

	var created backtestJSON
	ts.doJSON("POST", path, adminSubject, backtestBody(), http.StatusCreated, &created)
	assert.Equal(t, 2, created.Summary.TotalTrades)
	assert.Equal(t, 1, created.Summary.Wins)
	assert.Equal(t, "30", created.Summary.NetPnL)

	var list []backtestJSON
	ts.doJSON("GET", path, "", nil, http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Trades)

	var locked backtestJSON
	ts.doJSON("GET", "/api/backtests/"+created.ID, viewer, nil, http.StatusOK, &locked)
	assert.True(t, locked.Locked)
	assert.Equal(t, strategyID, locked.StrategyID)
	assert.Equal(t, "30", locked.Summary.NetPnL)
	assert.Empty(t, locked.Trades)
	assert.Empty(t, locked.Equity)

	ts.doJSON("POST", "/api/strategies/"+strategyID+"/unlock", viewer, map[string]string{"payment_ref": "pay_bt"}, http.StatusOK, nil)

	var full backtestJSON
	ts.doJSON("GET", "/api/backtests/"+created.ID, viewer, nil, http.StatusOK, &full)
	assert.False(t, full.Locked)
	require.Len(t, full.Trades, 2)
	assert.Equal(t, "BANKNIFTY24JAN45000CE", full.Trades[0].Symbol)
	assert.Equal(t, "40", full.Trades[0].PnL)
	assert.Equal(t, "-10", full.Trades[1].PnL)
	require.Len(t, full.Equity, 2)
	assert.Equal(t, "100040", full.Equity[0].Equity)
	assert.Equal(t, "100030", full.Equity[1].Equity)
}

func TestFreeStrategyBacktestIsOpen(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/strategies/" + ts.strategyID("Short Straddle") + "/backtests"

	var created backtestJSON
	ts.doJSON("POST", path, adminSubject, backtestBody(), http.StatusCreated, &created)

	var anon backtestJSON
	ts.doJSON("GET", "/api/backtests/"+created.ID, "", nil, http.StatusOK, &anon)
	assert.False(t, anon.Locked)
	assert.Len(t, anon.Trades, 2)
}

func TestCreateBacktestValidation(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/strategies/" + ts.strategyID("Short Straddle") + "/backtests"

	body := backtestBody()
	body["period_end"] = "2023-12-31T00:00:00Z"
	body["initial_capital"] = "0"
	body["trades"].([]map[string]any)[1]["side"] = "HOLD"

	var v validationJSON
	ts.doJSON("POST", path, adminSubject, body, http.StatusUnprocessableEntity, &v)
	assert.True(t, v.has("period_end"))
	assert.True(t, v.has("initial_capital"))
	assert.True(t, v.has("trades[1]"))

	assert.Equal(t, http.StatusNotFound, ts.do("POST", "/api/strategies/missing/backtests", adminSubject, backtestBody()).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/backtests/missing", "", nil).Code)
}

func TestBacktestRoundsPricesToStoredScale(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/strategies/" + ts.strategyID("Short Straddle") + "/backtests"

	body := backtestBody()
	body["trades"] = []map[string]any{{
		"symbol": "NIFTY24MARFUT", "side": "BUY", "quantity": 1,
		"entry_at": "2024-03-01T09:20:00Z", "exit_at": "2024-03-01T15:00:00Z",
		"entry_price": "100.004", "exit_price": "100.016",
	}}

	var created backtestJSON
	ts.doJSON("POST", path, adminSubject, body, http.StatusCreated, &created)
	assert.Equal(t, "0.02", created.Summary.NetPnL)

	var full backtestJSON
	ts.doJSON("GET", "/api/backtests/"+created.ID, "", nil, http.StatusOK, &full)
	require.Len(t, full.Trades, 1)
	assert.Equal(t, "0.02", full.Trades[0].PnL)
	require.Len(t, full.Equity, 1)
	assert.Equal(t, "100000.02", full.Equity[0].Equity)
}
