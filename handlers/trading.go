package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/trading"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

const maxPaperQuantity = 100

type deployRequest struct {
	Mode      string `json:"mode"`
	Confirmed bool   `json:"confirmed"`
	Quantity  int    `json:"quantity"`
	BrokerID  string `json:"broker_id"`
	Pin       string `json:"pin"`
}

type deployResponse struct {
	strategyView
	Step trading.Step `json:"step"`
}

// POST /api/strategies/{strategyID}/deploy
func (db *DBHandler) DeployStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req deployRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode, err := trading.ParseMode(req.Mode)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "mode must be paper or live")
		return
	}

	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "DeployStrategy", "Strategy", err)
		return
	}
	sel, err := db.findSelection(tx, user.ID, strategy.ID)
	if err != nil {
		db.internalError(w, "DeployStrategy", "Failed to load selection", err)
		return
	}
	premium, err := db.hasPremiumPlan(tx, user.ID)
	if err != nil {
		db.internalError(w, "DeployStrategy", "Failed to load subscription", err)
		return
	}

	var conn *models.BrokerConnection
	if req.BrokerID != "" {
		var conns []models.BrokerConnection
		if err := tx.Where("public_id = ? AND user_id = ?", req.BrokerID, user.ID).Limit(1).Find(&conns).Error; err != nil {
			db.internalError(w, "DeployStrategy", "Failed to load broker", err)
			return
		}
		if len(conns) > 0 {
			conn = &conns[0]
		}
	}

	decision, err := trading.Evaluate(trading.Request{
		Mode:      mode,
		Confirmed: req.Confirmed,
		Quantity:  req.Quantity,
		BrokerID:  req.BrokerID,
		Pin:       req.Pin,
	}, trading.Account{
		Paid:             paidStatus(strategy, user.ID, sel, premium),
		BrokerConnected:  conn != nil && conn.Connected(),
		HasPin:           user.TradingPINHash != "",
		VerifyPin:        func(pin string) bool { return pinMatches(user.TradingPINHash, pin) },
		MaxLiveQuantity:  db.Cfg.MaxLiveQuantity,
		MaxPaperQuantity: maxPaperQuantity,
	})
	if err != nil {
		db.deployError(w, strategy, err)
		return
	}

	now := db.Now()
	next := models.StrategySelection{
		UserID:      user.ID,
		StrategyID:  strategy.ID,
		Mode:        string(decision.Mode),
		Quantity:    decision.Quantity,
		ActivatedAt: &now,
	}
	if decision.Mode == trading.ModeLive {
		next.BrokerConnectionID = &conn.ID
	}
	if err := upsertSelection(tx, &next, "mode", "quantity", "broker_connection_id", "activated_at"); err != nil {
		db.internalError(w, "DeployStrategy", "Failed to deploy strategy", err, zap.String("strategyID", strategy.PublicID))
		return
	}

	view, err := db.strategyView(tx, user.ID, strategy)
	if err != nil {
		db.internalError(w, "DeployStrategy", "Failed to load strategy state", err)
		return
	}
	db.Log.Info("DeployStrategy: strategy deployed",
		zap.String("strategyID", strategy.PublicID),
		zap.Uint("userID", user.ID),
		zap.String("mode", string(decision.Mode)),
		zap.Int("quantity", decision.Quantity))
	utils.WriteJSON(w, http.StatusOK, deployResponse{strategyView: view, Step: decision.Step})
}

func (db *DBHandler) deployError(w http.ResponseWriter, strategy models.Strategy, err error) {
	var stepErr *trading.StepRequiredError
	switch {
	case errors.As(err, &stepErr):
		utils.WriteJSON(w, http.StatusConflict, map[string]string{
			"error": stepErr.Reason,
			"step":  string(stepErr.Step),
		})
	case errors.Is(err, trading.ErrNotPaid):
		utils.WriteError(w, http.StatusPaymentRequired, "Strategy must be unlocked before going live")
	case errors.Is(err, trading.ErrPinWrong):
		db.Log.Info("DeployStrategy: wrong trading PIN", zap.String("strategyID", strategy.PublicID))
		utils.WriteError(w, http.StatusForbidden, "Trading PIN does not match")
	case errors.Is(err, trading.ErrModeOff), errors.Is(err, trading.ErrBadMode):
		utils.WriteError(w, http.StatusBadRequest, "mode must be paper or live")
	default:
		db.internalError(w, "DeployStrategy", "Failed to deploy strategy", err)
	}
}

// POST /api/strategies/{strategyID}/stop
func (db *DBHandler) StopStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "StopStrategy", "Strategy", err)
		return
	}

	err = tx.Model(&models.StrategySelection{}).
		Where("user_id = ? AND strategy_id = ?", user.ID, strategy.ID).
		Updates(map[string]any{
			"mode":                 string(trading.ModeOff),
			"quantity":             0,
			"broker_connection_id": nil,
			"activated_at":         nil,
		}).Error
	if err != nil {
		db.internalError(w, "StopStrategy", "Failed to stop strategy", err, zap.String("strategyID", strategy.PublicID))
		return
	}
	db.Log.Info("StopStrategy: strategy stopped", zap.String("strategyID", strategy.PublicID), zap.Uint("userID", user.ID))
	db.selectionState(w, tx, "StopStrategy", user, strategy)
}
