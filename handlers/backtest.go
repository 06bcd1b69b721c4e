package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/andrewpaige1/stratdesk-api/backtest"
	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
)

type backtestRequest struct {
	Title          string           `json:"title"`
	PeriodStart    time.Time        `json:"period_start"`
	PeriodEnd      time.Time        `json:"period_end"`
	InitialCapital decimal.Decimal  `json:"initial_capital"`
	Trades         []backtest.Trade `json:"trades"`
}

// normalize rounds money to the two places the report columns store, so the
// summary matches what GetBacktestByID rebuilds from saved trades.
func (req *backtestRequest) normalize() {
	req.InitialCapital = req.InitialCapital.Round(2)
	for i := range req.Trades {
		req.Trades[i].EntryPrice = req.Trades[i].EntryPrice.Round(2)
		req.Trades[i].ExitPrice = req.Trades[i].ExitPrice.Round(2)
	}
}

func (req backtestRequest) validate() error {
	var errs validation.Errors
	errs.Length("title", req.Title, 1, 150)
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		errs.Add("period", "period_start and period_end are required")
	} else if req.PeriodEnd.Before(req.PeriodStart) {
		errs.Add("period_end", "must not be before period_start")
	}
	if !req.InitialCapital.IsPositive() {
		errs.Add("initial_capital", "must be positive")
	}
	for i, t := range req.Trades {
		if err := t.Validate(); err != nil {
			errs.Add(fmt.Sprintf("trades[%d]", i), "%v", err)
		}
	}
	return errs.Err()
}

func toBacktestTrades(rows []models.BacktestTrade) []backtest.Trade {
	out := make([]backtest.Trade, len(rows))
	for i, t := range rows {
		out[i] = backtest.Trade{
			Symbol:     t.Symbol,
			Side:       backtest.Side(t.Side),
			Quantity:   t.Quantity,
			EntryAt:    t.EntryAt,
			ExitAt:     t.ExitAt,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
		}
	}
	return out
}

// POST /api/strategies/{strategyID}/backtests
func (db *DBHandler) CreateBacktest(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, 0)
	if err != nil {
		db.lookupError(w, "CreateBacktest", "Strategy", err)
		return
	}

	var req backtestRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if err := req.validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	summary, _ := backtest.Summarize(req.InitialCapital, req.Trades)
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		db.internalError(w, "CreateBacktest", "Failed to encode summary", err)
		return
	}

	report := models.BacktestReport{
		StrategyID:     strategy.ID,
		Title:          req.Title,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		InitialCapital: req.InitialCapital,
		Summary:        datatypes.JSON(summaryJSON),
	}
	if report.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "CreateBacktest", "Failed to generate ID", err)
		return
	}
	for _, t := range backtest.SortTrades(req.Trades) {
		report.Trades = append(report.Trades, models.BacktestTrade{
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			Quantity:   t.Quantity,
			EntryAt:    t.EntryAt,
			ExitAt:     t.ExitAt,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL(),
		})
	}

	if err := tx.Create(&report).Error; err != nil {
		db.internalError(w, "CreateBacktest", "Failed to save backtest", err, zap.String("strategyID", strategy.PublicID))
		return
	}
	db.Log.Info("CreateBacktest: report created",
		zap.String("strategyID", strategy.PublicID), zap.String("reportID", report.PublicID), zap.Int("trades", len(report.Trades)))
	utils.WriteJSON(w, http.StatusCreated, report)
}

// GET /api/strategies/{strategyID}/backtests
func (db *DBHandler) ListBacktests(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	var userID uint
	if user, ok := db.optionalUser(r); ok {
		userID = user.ID
	}
	strategy, err := db.findVisibleStrategy(r, tx, userID)
	if err != nil {
		db.lookupError(w, "ListBacktests", "Strategy", err)
		return
	}

	var reports []models.BacktestReport
	if err := tx.Where("strategy_id = ?", strategy.ID).Order("period_end desc").Find(&reports).Error; err != nil {
		db.internalError(w, "ListBacktests", "Failed to fetch backtests", err)
		return
	}
	if reports == nil {
		reports = []models.BacktestReport{}
	}
	utils.WriteJSON(w, http.StatusOK, reports)
}

type backtestView struct {
	models.BacktestReport
	Strategy string                 `json:"strategy_id"`
	Locked   bool                   `json:"locked"`
	Equity   []backtest.EquityPoint `json:"equity_curve,omitempty"`
}

// GET /api/backtests/{reportID}
func (db *DBHandler) GetBacktestByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	var userID uint
	if user, ok := db.optionalUser(r); ok {
		userID = user.ID
	}

	var report models.BacktestReport
	if err := tx.Where("public_id = ?", r.PathValue("reportID")).First(&report).Error; err != nil {
		db.lookupError(w, "GetBacktestByID", "Backtest", err)
		return
	}
	var strategy models.Strategy
	if err := tx.Scopes(visibleStrategies(userID)).Where("id = ?", report.StrategyID).First(&strategy).Error; err != nil {
		db.lookupError(w, "GetBacktestByID", "Backtest", err)
		return
	}

	view, err := db.strategyView(tx, userID, strategy)
	if err != nil {
		db.internalError(w, "GetBacktestByID", "Failed to load strategy state", err)
		return
	}
	resp := backtestView{BacktestReport: report, Strategy: strategy.PublicID, Locked: !view.Paid}
	if view.Paid {
		if err := tx.Where("report_id = ?", report.ID).Order("exit_at asc, id asc").Find(&resp.Trades).Error; err != nil {
			db.internalError(w, "GetBacktestByID", "Failed to fetch trades", err)
			return
		}
		_, resp.Equity = backtest.Summarize(report.InitialCapital, toBacktestTrades(resp.Trades))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
