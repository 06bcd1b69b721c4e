package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
	"github.com/andrewpaige1/stratdesk-api/wizard"
)

type draftView struct {
	ID    string       `json:"id"`
	Draft wizard.Draft `json:"draft"`
}

func loadDraft(row models.StrategyDraft) (wizard.Draft, error) {
	var d wizard.Draft
	if len(row.State) == 0 {
		return d, nil
	}
	err := json.Unmarshal(row.State, &d)
	return d, err
}

func (db *DBHandler) findDraft(r *http.Request, tx *gorm.DB, userID uint) (models.StrategyDraft, error) {
	var row models.StrategyDraft
	err := tx.Where("public_id = ? AND user_id = ?", r.PathValue("draftID"), userID).First(&row).Error
	return row, err
}

// wizardError maps a failed draft operation to a response.
func wizardError(w http.ResponseWriter, err error) {
	var stepErr *wizard.StepError
	switch {
	case errors.As(err, &stepErr):
		var fields validation.Errors
		if errors.As(stepErr.Err, &fields) {
			utils.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"step":   stepErr.Step,
				"fields": fields,
			})
			return
		}
		utils.WriteJSON(w, http.StatusConflict, map[string]any{"error": stepErr.Error(), "step": stepErr.Step})
	case errors.Is(err, wizard.ErrLegNotFound):
		utils.WriteError(w, http.StatusNotFound, "Leg not found")
	case errors.Is(err, wizard.ErrFirstStep),
		errors.Is(err, wizard.ErrLastStep),
		errors.Is(err, wizard.ErrNotAtReview),
		errors.Is(err, wizard.ErrTooManyLegs):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, wizard.ErrStepOutOfRange):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		utils.WriteValidation(w, err)
	}
}

// editDraft loads the caller's draft, applies fn and stores the result.
// Nothing is written when fn fails.
func (db *DBHandler) editDraft(w http.ResponseWriter, r *http.Request, op string, fn func(wizard.Draft) (wizard.Draft, error)) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	row, err := db.findDraft(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, op, "Draft", err)
		return
	}
	draft, err := loadDraft(row)
	if err != nil {
		db.internalError(w, op, "Failed to decode draft", err, zap.String("draftID", row.PublicID))
		return
	}

	next, err := fn(draft)
	if err != nil {
		wizardError(w, err)
		return
	}
	state, err := json.Marshal(next)
	if err != nil {
		db.internalError(w, op, "Failed to encode draft", err)
		return
	}
	if err := tx.Model(&row).Updates(map[string]any{"state": datatypes.JSON(state), "name": models.DraftName(next.Basics.Name)}).Error; err != nil {
		db.internalError(w, op, "Failed to save draft", err, zap.String("draftID", row.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, draftView{ID: row.PublicID, Draft: next})
}

// POST /api/wizards
func (db *DBHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Basics *wizard.Basics `json:"basics"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	draft := wizard.Draft{Legs: []wizard.Leg{}}
	if req.Basics != nil {
		draft = draft.SetBasics(*req.Basics)
	}
	state, err := json.Marshal(draft)
	if err != nil {
		db.internalError(w, "CreateDraft", "Failed to encode draft", err)
		return
	}

	row := models.StrategyDraft{UserID: user.ID, Name: models.DraftName(draft.Basics.Name), State: datatypes.JSON(state)}
	if row.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "CreateDraft", "Failed to generate ID", err)
		return
	}
	if err := db.WithContext(r.Context()).Create(&row).Error; err != nil {
		db.internalError(w, "CreateDraft", "Failed to create draft", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, draftView{ID: row.PublicID, Draft: draft})
}

// GET /api/wizards
func (db *DBHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var rows []models.StrategyDraft
	if err := db.WithContext(r.Context()).Where("user_id = ?", user.ID).Order("updated_at desc").Find(&rows).Error; err != nil {
		db.internalError(w, "ListDrafts", "Failed to fetch drafts", err)
		return
	}
	if rows == nil {
		rows = []models.StrategyDraft{}
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

// GET /api/wizards/{draftID}
func (db *DBHandler) GetDraftByID(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	row, err := db.findDraft(r, db.WithContext(r.Context()), user.ID)
	if err != nil {
		db.lookupError(w, "GetDraftByID", "Draft", err)
		return
	}
	draft, err := loadDraft(row)
	if err != nil {
		db.internalError(w, "GetDraftByID", "Failed to decode draft", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, draftView{ID: row.PublicID, Draft: draft})
}

// DELETE /api/wizards/{draftID}
func (db *DBHandler) DeleteDraftByID(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	row, err := db.findDraft(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "DeleteDraftByID", "Draft", err)
		return
	}
	if err := tx.Delete(&row).Error; err != nil {
		db.internalError(w, "DeleteDraftByID", "Failed to delete draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeInto decodes the body into v and reports a 400 on failure.
func decodeInto(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utils.DecodeJSON(r, v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// PUT /api/wizards/{draftID}/basics
func (db *DBHandler) SetDraftBasics(w http.ResponseWriter, r *http.Request) {
	var basics wizard.Basics
	if !decodeInto(w, r, &basics) {
		return
	}
	db.editDraft(w, r, "SetDraftBasics", func(d wizard.Draft) (wizard.Draft, error) {
		return d.SetBasics(basics), nil
	})
}

// PUT /api/wizards/{draftID}/risk
func (db *DBHandler) SetDraftRisk(w http.ResponseWriter, r *http.Request) {
	var risk wizard.Risk
	if !decodeInto(w, r, &risk) {
		return
	}
	db.editDraft(w, r, "SetDraftRisk", func(d wizard.Draft) (wizard.Draft, error) {
		return d.SetRisk(risk), nil
	})
}

// POST /api/wizards/{draftID}/legs
func (db *DBHandler) AddDraftLeg(w http.ResponseWriter, r *http.Request) {
	var leg wizard.Leg
	if !decodeInto(w, r, &leg) {
		return
	}
	db.editDraft(w, r, "AddDraftLeg", func(d wizard.Draft) (wizard.Draft, error) {
		return d.AddLeg(leg)
	})
}

// PUT /api/wizards/{draftID}/legs/{legID}
func (db *DBHandler) UpdateDraftLeg(w http.ResponseWriter, r *http.Request) {
	var leg wizard.Leg
	if !decodeInto(w, r, &leg) {
		return
	}
	legID := r.PathValue("legID")
	db.editDraft(w, r, "UpdateDraftLeg", func(d wizard.Draft) (wizard.Draft, error) {
		return d.UpdateLeg(legID, leg)
	})
}

// DELETE /api/wizards/{draftID}/legs/{legID}
func (db *DBHandler) RemoveDraftLeg(w http.ResponseWriter, r *http.Request) {
	legID := r.PathValue("legID")
	db.editDraft(w, r, "RemoveDraftLeg", func(d wizard.Draft) (wizard.Draft, error) {
		return d.RemoveLeg(legID)
	})
}

// POST /api/wizards/{draftID}/legs/{legID}/duplicate
func (db *DBHandler) DuplicateDraftLeg(w http.ResponseWriter, r *http.Request) {
	legID := r.PathValue("legID")
	db.editDraft(w, r, "DuplicateDraftLeg", func(d wizard.Draft) (wizard.Draft, error) {
		return d.DuplicateLeg(legID)
	})
}

// POST /api/wizards/{draftID}/legs/{legID}/move
func (db *DBHandler) MoveDraftLeg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Index == nil {
		utils.WriteError(w, http.StatusBadRequest, "index is required")
		return
	}
	legID := r.PathValue("legID")
	db.editDraft(w, r, "MoveDraftLeg", func(d wizard.Draft) (wizard.Draft, error) {
		return d.MoveLeg(legID, *req.Index)
	})
}

// POST /api/wizards/{draftID}/next
func (db *DBHandler) NextDraftStep(w http.ResponseWriter, r *http.Request) {
	db.editDraft(w, r, "NextDraftStep", wizard.Draft.Next)
}

// POST /api/wizards/{draftID}/prev
func (db *DBHandler) PrevDraftStep(w http.ResponseWriter, r *http.Request) {
	db.editDraft(w, r, "PrevDraftStep", wizard.Draft.Prev)
}

// POST /api/wizards/{draftID}/goto
func (db *DBHandler) GoToDraftStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step *wizard.Step `json:"step"`
	}
	if !decodeInto(w, r, &req) {
		return
	}
	if req.Step == nil {
		utils.WriteError(w, http.StatusBadRequest, "step is required")
		return
	}
	db.editDraft(w, r, "GoToDraftStep", func(d wizard.Draft) (wizard.Draft, error) {
		return d.GoTo(*req.Step)
	})
}

// POST /api/wizards/{draftID}/finalize
func (db *DBHandler) FinalizeDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	row, err := db.findDraft(r, tx, user.ID)
	if err != nil {
		db.lookupError(w, "FinalizeDraft", "Draft", err)
		return
	}
	draft, err := loadDraft(row)
	if err != nil {
		db.internalError(w, "FinalizeDraft", "Failed to decode draft", err)
		return
	}
	final, err := draft.Finalize()
	if err != nil {
		wizardError(w, err)
		return
	}

	strategy, err := models.StrategyFromDraft(final, models.StrategyCustom)
	if err != nil {
		db.internalError(w, "FinalizeDraft", "Failed to build strategy", err)
		return
	}
	strategy.OwnerID = &user.ID

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&strategy).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		db.internalError(w, "FinalizeDraft", "Failed to save strategy", err, zap.String("draftID", row.PublicID))
		return
	}
	db.Log.Info("FinalizeDraft: custom strategy created",
		zap.String("strategyID", strategy.PublicID), zap.Uint("userID", user.ID))
	utils.WriteJSON(w, http.StatusCreated, strategyView{Strategy: strategy, Paid: true})
}
