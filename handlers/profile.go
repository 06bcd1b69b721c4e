package handlers

import (
	"net/http"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
)

// GET /api/me
func (db *DBHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	user.HasTradingPIN = user.TradingPINHash != ""
	utils.WriteJSON(w, http.StatusOK, user)
}

// PUT /api/me/profile
func (db *DBHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	var req models.ProfileUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}
	req.Apply(user)

	err := db.WithContext(r.Context()).Model(user).Updates(map[string]any{
		"full_name":        user.FullName,
		"phone":            user.Phone,
		"avatar_url":       user.AvatarURL,
		"experience_level": user.ExperienceLevel,
		"risk_appetite":    user.RiskAppetite,
	}).Error
	if err != nil {
		db.internalError(w, "UpdateProfile", "Failed to update profile", err)
		return
	}
	user.HasTradingPIN = user.TradingPINHash != ""
	utils.WriteJSON(w, http.StatusOK, user)
}

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

func pinMatches(hash, pin string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// PUT /api/me/security/pin
func (db *DBHandler) SetTradingPIN(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	var req struct {
		CurrentPIN string `json:"current_pin"`
		NewPIN     string `json:"new_pin"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs validation.Errors
	if !pinPattern.MatchString(req.NewPIN) {
		errs.Add("new_pin", "must be 4 to 6 digits")
	}
	if user.TradingPINHash != "" && !pinMatches(user.TradingPINHash, req.CurrentPIN) {
		errs.Add("current_pin", "does not match")
	}
	if err := errs.Err(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPIN), bcrypt.DefaultCost)
	if err != nil {
		db.internalError(w, "SetTradingPIN", "Failed to hash PIN", err)
		return
	}
	if err := db.WithContext(r.Context()).Model(user).Update("trading_pin_hash", string(hash)).Error; err != nil {
		db.internalError(w, "SetTradingPIN", "Failed to save PIN", err)
		return
	}

	db.Log.Info("SetTradingPIN: trading PIN updated", zap.Uint("userID", user.ID))
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/me/security/pin/verify
func (db *DBHandler) VerifyTradingPIN(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		PIN string `json:"pin"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if user.TradingPINHash == "" {
		utils.WriteError(w, http.StatusConflict, "No trading PIN set")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"valid": pinMatches(user.TradingPINHash, req.PIN)})
}

// PUT /api/me/security/two-factor
func (db *DBHandler) SetTwoFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil || req.Enabled == nil {
		utils.WriteError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := db.WithContext(r.Context()).Model(user).Update("two_factor_enabled", *req.Enabled).Error; err != nil {
		db.internalError(w, "SetTwoFactor", "Failed to update two-factor setting", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"two_factor_enabled": *req.Enabled})
}

type dashboardResponse struct {
	Profile      *models.User         `json:"profile"`
	Strategies   []strategyView       `json:"strategies"`
	Subscription *models.Subscription `json:"subscription"`
	Progress     []ModuleProgress     `json:"progress"`
}

// GET /api/me/dashboard
func (db *DBHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	user.HasTradingPIN = user.TradingPINHash != ""

	resp := dashboardResponse{Profile: user}
	g, ctx := errgroup.WithContext(r.Context())
	tx := db.WithContext(ctx)

	g.Go(func() error {
		views, err := db.selectionViews(tx, user, "")
		resp.Strategies = views
		return err
	})
	g.Go(func() error {
		sub, err := db.activeSubscription(tx, user.ID)
		resp.Subscription = sub
		return err
	})
	g.Go(func() error {
		progress, err := db.myProgress(tx, user.ID)
		resp.Progress = progress
		return err
	})

	if err := g.Wait(); err != nil {
		db.internalError(w, "GetDashboard", "Failed to load dashboard", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
