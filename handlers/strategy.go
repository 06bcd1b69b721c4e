package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/trading"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
	"github.com/andrewpaige1/stratdesk-api/wizard"
)

type strategyView struct {
	models.Strategy
	Paid      bool                      `json:"paid"`
	Selection *models.StrategySelection `json:"selection,omitempty"`
}

// GET /api/strategies
func (db *DBHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	var userID uint
	user, authed := db.optionalUser(r)
	if authed {
		userID = user.ID
	}

	var strategies []models.Strategy
	if err := tx.Scopes(visibleStrategies(userID)).Order("kind desc, name asc").Find(&strategies).Error; err != nil {
		db.internalError(w, "ListStrategies", "Failed to fetch strategies", err)
		return
	}

	selections := map[uint]*models.StrategySelection{}
	premium := false
	if authed {
		var sels []models.StrategySelection
		if err := tx.Where("user_id = ?", userID).Find(&sels).Error; err != nil {
			db.internalError(w, "ListStrategies", "Failed to fetch selections", err)
			return
		}
		for i := range sels {
			selections[sels[i].StrategyID] = &sels[i]
		}
		var err error
		if premium, err = db.hasPremiumPlan(tx, userID); err != nil {
			db.internalError(w, "ListStrategies", "Failed to load subscription", err)
			return
		}
	}

	views := make([]strategyView, 0, len(strategies))
	for _, s := range strategies {
		sel := selections[s.ID]
		views = append(views, strategyView{Strategy: s, Paid: paidStatus(s, userID, sel, premium), Selection: sel})
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

func (db *DBHandler) strategyView(tx *gorm.DB, userID uint, s models.Strategy) (strategyView, error) {
	view := strategyView{Strategy: s}
	if userID == 0 {
		view.Paid = paidStatus(s, 0, nil, false)
		return view, nil
	}
	sel, err := db.findSelection(tx, userID, s.ID)
	if err != nil {
		return view, err
	}
	premium, err := db.hasPremiumPlan(tx, userID)
	if err != nil {
		return view, err
	}
	view.Selection = sel
	view.Paid = paidStatus(s, userID, sel, premium)
	return view, nil
}

// GET /api/strategies/{strategyID}
func (db *DBHandler) GetStrategyByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	var userID uint
	if user, ok := db.optionalUser(r); ok {
		userID = user.ID
	}

	strategy, err := db.findVisibleStrategy(r, tx, userID)
	if err != nil {
		db.lookupError(w, "GetStrategyByID", "Strategy", err)
		return
	}
	view, err := db.strategyView(tx, userID, strategy)
	if err != nil {
		db.internalError(w, "GetStrategyByID", "Failed to load strategy state", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

type createStrategyRequest struct {
	wizard.Basics
	Legs       []wizard.Leg    `json:"legs"`
	Risk       wizard.Risk     `json:"risk"`
	IsPremium  bool            `json:"is_premium"`
	MinCapital decimal.Decimal `json:"min_capital"`
}

// POST /api/strategies
func (db *DBHandler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req createStrategyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := wizard.Build(req.Basics, req.Legs, req.Risk)
	if err != nil {
		utils.WriteValidation(w, err)
		return
	}
	strategy, err := models.StrategyFromDraft(draft, models.StrategyPredefined)
	if err != nil {
		db.internalError(w, "CreateStrategy", "Failed to build strategy", err)
		return
	}
	strategy.IsPremium = req.IsPremium
	strategy.MinCapital = req.MinCapital
	if err := strategy.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	if err := db.WithContext(r.Context()).Create(&strategy).Error; err != nil {
		db.internalError(w, "CreateStrategy", "Failed to create strategy", err)
		return
	}
	db.Log.Info("CreateStrategy: created predefined strategy", zap.String("strategyID", strategy.PublicID))
	utils.WriteJSON(w, http.StatusCreated, strategyView{Strategy: strategy, Paid: !strategy.IsPremium})
}

// DELETE /api/strategies/{strategyID}
func (db *DBHandler) DeleteStrategyByID(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "DeleteStrategyByID", "Strategy", err)
		return
	}

	allowed := strategy.OwnedBy(user.ID) || (strategy.Kind == models.StrategyPredefined && db.isAdmin(r))
	if !allowed {
		db.Log.Info("DeleteStrategyByID: forbidden", zap.String("strategyID", strategy.PublicID), zap.Uint("userID", user.ID))
		utils.WriteError(w, http.StatusForbidden, "Forbidden")
		return
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("strategy_id = ?", strategy.ID).Delete(&models.StrategySelection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&strategy).Error
	})
	if err != nil {
		db.internalError(w, "DeleteStrategyByID", "Failed to delete strategy", err, zap.String("strategyID", strategy.PublicID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// upsertSelection writes sel for its (user, strategy) pair in one statement,
// updating only the listed columns when the row exists.
func upsertSelection(tx *gorm.DB, sel *models.StrategySelection, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}).Omit(clause.Associations).Create(sel).Error
}

// selectionState re-reads the selection after a write and renders it.
func (db *DBHandler) selectionState(w http.ResponseWriter, tx *gorm.DB, op string, user *models.User, strategy models.Strategy) {
	view, err := db.strategyView(tx, user.ID, strategy)
	if err != nil {
		db.internalError(w, op, "Failed to load strategy state", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// PUT /api/strategies/{strategyID}/wishlist
func (db *DBHandler) SetWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Wishlisted *bool `json:"wishlisted"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil || req.Wishlisted == nil {
		utils.WriteError(w, http.StatusBadRequest, "wishlisted is required")
		return
	}

	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "SetWishlist", "Strategy", err)
		return
	}

	sel := models.StrategySelection{
		UserID:       user.ID,
		StrategyID:   strategy.ID,
		IsWishlisted: *req.Wishlisted,
		Mode:         string(trading.ModeOff),
	}
	if err := upsertSelection(tx, &sel, "is_wishlisted"); err != nil {
		db.internalError(w, "SetWishlist", "Failed to update wishlist", err, zap.String("strategyID", strategy.PublicID))
		return
	}
	db.selectionState(w, tx, "SetWishlist", user, strategy)
}

// POST /api/strategies/{strategyID}/unlock
func (db *DBHandler) UnlockStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var errs validation.Errors
	errs.Length("payment_ref", req.PaymentRef, 1, 100)
	if err := errs.Err(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	tx := db.WithContext(r.Context())
	strategy, err := db.findVisibleStrategy(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "UnlockStrategy", "Strategy", err)
		return
	}

	sel := models.StrategySelection{
		UserID:     user.ID,
		StrategyID: strategy.ID,
		IsPaid:     true,
		PaymentRef: req.PaymentRef,
		Mode:       string(trading.ModeOff),
	}
	if err := upsertSelection(tx, &sel, "is_paid", "payment_ref"); err != nil {
		db.internalError(w, "UnlockStrategy", "Failed to unlock strategy", err, zap.String("strategyID", strategy.PublicID))
		return
	}
	db.Log.Info("UnlockStrategy: strategy unlocked", zap.String("strategyID", strategy.PublicID), zap.Uint("userID", user.ID))
	db.selectionState(w, tx, "UnlockStrategy", user, strategy)
}

// selectionViews lists the caller's selections joined with their
// strategies. filter "wishlist" limits to wishlisted rows.
func (db *DBHandler) selectionViews(tx *gorm.DB, user *models.User, filter string) ([]strategyView, error) {
	query := tx.Preload("Strategy").
		Joins("JOIN strategies ON strategies.id = strategy_selections.strategy_id AND strategies.deleted_at IS NULL").
		Where("strategy_selections.user_id = ?", user.ID).
		Order("strategy_selections.updated_at desc")
	if filter == "wishlist" {
		query = query.Where("strategy_selections.is_wishlisted = ?", true)
	}

	var sels []models.StrategySelection
	if err := query.Find(&sels).Error; err != nil {
		return nil, err
	}
	premium, err := db.hasPremiumPlan(tx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]strategyView, 0, len(sels))
	for i := range sels {
		sel := &sels[i]
		views = append(views, strategyView{
			Strategy:  sel.Strategy,
			Paid:      paidStatus(sel.Strategy, user.ID, sel, premium),
			Selection: sel,
		})
	}
	return views, nil
}

// GET /api/me/wishlist
func (db *DBHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	views, err := db.selectionViews(db.WithContext(r.Context()), user, "wishlist")
	if err != nil {
		db.internalError(w, "GetWishlist", "Failed to fetch wishlist", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

// GET /api/me/strategies
func (db *DBHandler) GetMyStrategies(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	views, err := db.selectionViews(db.WithContext(r.Context()), user, "")
	if err != nil {
		db.internalError(w, "GetMyStrategies", "Failed to fetch strategies", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}
