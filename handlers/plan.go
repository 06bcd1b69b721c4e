package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
)

// GET /api/plans
func (db *DBHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	var plans []models.Plan
	if err := db.WithContext(r.Context()).Where("is_active = ?", true).Order("price asc").Find(&plans).Error; err != nil {
		db.internalError(w, "ListPlans", "Failed to fetch plans", err)
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	utils.WriteJSON(w, http.StatusOK, plans)
}

type planRequest struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	IntervalMonths int             `json:"interval_months"`
	Features       []string        `json:"features"`
}

// POST /api/plans
func (db *DBHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if req.Features == nil {
		req.Features = []string{}
	}
	features, err := json.Marshal(req.Features)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid features")
		return
	}
	plan := models.Plan{
		Code:           req.Code,
		Name:           req.Name,
		Price:          req.Price,
		Currency:       req.Currency,
		IntervalMonths: req.IntervalMonths,
		Features:       datatypes.JSON(features),
		IsActive:       true,
	}
	if err := plan.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	tx := db.WithContext(r.Context())
	var existing int64
	if err := tx.Model(&models.Plan{}).Where("code = ?", plan.Code).Count(&existing).Error; err != nil {
		db.internalError(w, "CreatePlan", "Failed to check plan code", err)
		return
	}
	if existing > 0 {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": validation.Errors{{Field: "code", Message: "is already taken"}},
		})
		return
	}
	if err := tx.Create(&plan).Error; err != nil {
		db.internalError(w, "CreatePlan", "Failed to create plan", err, zap.String("code", plan.Code))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, plan)
}

// POST /api/subscriptions
func (db *DBHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		PlanCode   string `json:"plan_code"`
		PaymentRef string `json:"payment_ref"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var errs validation.Errors
	errs.Length("plan_code", req.PlanCode, 1, 40)
	errs.Length("payment_ref", req.PaymentRef, 1, 100)
	if err := errs.Err(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	tx := db.WithContext(r.Context())
	var plan models.Plan
	if err := tx.Where("code = ? AND is_active = ?", req.PlanCode, true).First(&plan).Error; err != nil {
		db.lookupError(w, "Subscribe", "Plan", err)
		return
	}

	now := db.Now()
	sub := models.Subscription{
		UserID:     user.ID,
		PlanID:     plan.ID,
		Status:     models.SubscriptionActive,
		StartedAt:  now,
		ExpiresAt:  now.AddDate(0, plan.IntervalMonths, 0),
		PaymentRef: req.PaymentRef,
	}
	var err error
	if sub.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "Subscribe", "Failed to generate ID", err)
		return
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("user_id = ? AND status = ?", user.ID, models.SubscriptionActive).
			Update("status", models.SubscriptionCancelled).Error; err != nil {
			return err
		}
		return tx.Omit("Plan").Create(&sub).Error
	})
	if err != nil {
		db.internalError(w, "Subscribe", "Failed to start subscription", err, zap.String("plan", plan.Code))
		return
	}
	sub.Plan = plan
	db.Log.Info("Subscribe: subscription started",
		zap.String("plan", plan.Code), zap.Uint("userID", user.ID), zap.Time("expiresAt", sub.ExpiresAt))
	utils.WriteJSON(w, http.StatusCreated, sub)
}

// GET /api/me/subscription
func (db *DBHandler) GetMySubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	sub, err := db.activeSubscription(db.WithContext(r.Context()), user.ID)
	if err != nil {
		db.internalError(w, "GetMySubscription", "Failed to load subscription", err)
		return
	}
	if sub == nil {
		utils.WriteError(w, http.StatusNotFound, "No active subscription")
		return
	}
	utils.WriteJSON(w, http.StatusOK, sub)
}

// DELETE /api/me/subscription
func (db *DBHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	sub, err := db.activeSubscription(tx, user.ID)
	if err != nil {
		db.internalError(w, "CancelSubscription", "Failed to load subscription", err)
		return
	}
	if sub == nil {
		utils.WriteError(w, http.StatusNotFound, "No active subscription")
		return
	}
	if err := tx.Model(sub).Update("status", models.SubscriptionCancelled).Error; err != nil {
		db.internalError(w, "CancelSubscription", "Failed to cancel subscription", err)
		return
	}
	db.Log.Info("CancelSubscription: subscription cancelled", zap.String("subscriptionID", sub.PublicID))
	w.WriteHeader(http.StatusNoContent)
}
