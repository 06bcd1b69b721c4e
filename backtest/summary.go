package backtest

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Trade struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   int             `json:"quantity"`
	EntryAt    time.Time       `json:"entry_at"`
	ExitAt     time.Time       `json:"exit_at"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
}

// PnL is (exit-entry)*qty for longs and the negation for shorts.
func (t Trade) PnL() decimal.Decimal {
	diff := t.ExitPrice.Sub(t.EntryPrice).Mul(decimal.NewFromInt(int64(t.Quantity)))
	if t.Side == SideSell {
		return diff.Neg()
	}
	return diff
}

func (t Trade) Validate() error {
	switch {
	case t.Side != SideBuy && t.Side != SideSell:
		return fmt.Errorf("side must be BUY or SELL")
	case t.Quantity < 1:
		return fmt.Errorf("quantity must be at least 1")
	case t.EntryAt.IsZero() || t.ExitAt.IsZero():
		return fmt.Errorf("entry_at and exit_at are required")
	case t.ExitAt.Before(t.EntryAt):
		return fmt.Errorf("exit_at must not be before entry_at")
	case !t.EntryPrice.IsPositive() || !t.ExitPrice.IsPositive():
		return fmt.Errorf("prices must be positive")
	}
	return nil
}

type Summary struct {
	TotalTrades    int             `json:"total_trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        decimal.Decimal `json:"win_rate"`
	NetPnL         decimal.Decimal `json:"net_pnl"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	GrossLoss      decimal.Decimal `json:"gross_loss"`
	ProfitFactor   decimal.Decimal `json:"profit_factor"`
	AvgPnL         decimal.Decimal `json:"avg_pnl"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	FinalEquity    decimal.Decimal `json:"final_equity"`
}

type EquityPoint struct {
	At     time.Time       `json:"at"`
	Equity decimal.Decimal `json:"equity"`
}

var hundred = decimal.NewFromInt(100)

// SortTrades orders trades by exit time, oldest first.
func SortTrades(trades []Trade) []Trade {
	out := slices.Clone(trades)
	slices.SortStableFunc(out, func(a, b Trade) int { return a.ExitAt.Compare(b.ExitAt) })
	return out
}

// Summarize computes report metrics over trades closed in exit order,
// starting from initialCapital.
func Summarize(initialCapital decimal.Decimal, trades []Trade) (Summary, []EquityPoint) {
	sorted := SortTrades(trades)

	s := Summary{TotalTrades: len(sorted)}
	curve := make([]EquityPoint, 0, len(sorted))

	equity := initialCapital
	peak := initialCapital
	for _, t := range sorted {
		pnl := t.PnL()
		switch {
		case pnl.IsPositive():
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(pnl)
		case pnl.IsNegative():
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(pnl)
		}
		s.NetPnL = s.NetPnL.Add(pnl)

		equity = equity.Add(pnl)
		curve = append(curve, EquityPoint{At: t.ExitAt, Equity: equity})

		if equity.GreaterThan(peak) {
			peak = equity
		}
		dd := peak.Sub(equity)
		if dd.GreaterThan(s.MaxDrawdown) {
			s.MaxDrawdown = dd
			if peak.IsPositive() {
				s.MaxDrawdownPct = dd.Div(peak).Mul(hundred).Round(2)
			}
		}
	}

	s.FinalEquity = equity
	if s.TotalTrades > 0 {
		n := decimal.NewFromInt(int64(s.TotalTrades))
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(n).Mul(hundred).Round(2)
		s.AvgPnL = s.NetPnL.Div(n).Round(2)
	}
	switch {
	case s.GrossLoss.IsZero():
		s.ProfitFactor = s.GrossProfit
	default:
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss.Abs()).Round(2)
	}
	if initialCapital.IsPositive() {
		s.ReturnPct = s.NetPnL.Div(initialCapital).Mul(hundred).Round(2)
	}
	return s, curve
}
