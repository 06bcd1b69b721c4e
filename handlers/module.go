package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

func orderByIndex(tx *gorm.DB) *gorm.DB {
	return tx.Order("order_index asc, id asc")
}

// GET /api/modules
func (db *DBHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	query := db.WithContext(r.Context()).Scopes(orderByIndex)
	if !db.isAdmin(r) {
		query = query.Where("is_published = ?", true)
	}

	var modules []models.Module
	if err := query.Find(&modules).Error; err != nil {
		db.internalError(w, "ListModules", "Failed to fetch modules", err)
		return
	}
	if len(modules) == 0 {
		modules = []models.Module{}
	}
	utils.WriteJSON(w, http.StatusOK, modules)
}

// findModule loads a module by public id. Unpublished modules are hidden
// from non-admins.
func (db *DBHandler) findModule(r *http.Request, tx *gorm.DB, withChildren bool) (models.Module, error) {
	query := tx.Where("public_id = ?", r.PathValue("moduleID"))
	if !db.isAdmin(r) {
		query = query.Where("is_published = ?", true)
	}
	if withChildren {
		query = query.
			Preload("Contents", orderByIndex).
			Preload("Questions", orderByIndex).
			Preload("Questions.Answers", orderByIndex)
	}
	var module models.Module
	err := query.First(&module).Error
	return module, err
}

// GET /api/modules/{moduleID}
func (db *DBHandler) GetModuleByID(w http.ResponseWriter, r *http.Request) {
	module, err := db.findModule(r, db.WithContext(r.Context()), true)
	if err != nil {
		db.lookupError(w, "GetModuleByID", "Module", err)
		return
	}

	if !db.isAdmin(r) {
		for i := range module.Questions {
			module.Questions[i] = module.Questions[i].Redacted()
		}
	}
	utils.WriteJSON(w, http.StatusOK, module)
}

type moduleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index"`
	PassPercent *int    `json:"pass_percent"`
	IsPublished *bool   `json:"is_published"`
}

func (req moduleRequest) apply(m *models.Module) {
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.OrderIndex != nil {
		m.OrderIndex = *req.OrderIndex
	}
	if req.PassPercent != nil {
		m.PassPercent = *req.PassPercent
	}
	if req.IsPublished != nil {
		m.IsPublished = *req.IsPublished
	}
}

// POST /api/modules
func (db *DBHandler) CreateModule(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	module := models.Module{PassPercent: db.Cfg.QuizPassPercent}
	req.apply(&module)
	if err := module.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	publicID, err := newPublicID()
	if err != nil {
		db.internalError(w, "CreateModule", "Failed to generate ID", err)
		return
	}
	module.PublicID = publicID

	if err := db.WithContext(r.Context()).Create(&module).Error; err != nil {
		db.internalError(w, "CreateModule", "Failed to create module", err)
		return
	}

	db.Log.Info("CreateModule: created module", zap.String("moduleID", module.PublicID))
	utils.WriteJSON(w, http.StatusCreated, module)
}

// PUT /api/modules/{moduleID}
func (db *DBHandler) UpdateModuleByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "UpdateModuleByID", "Module", err)
		return
	}

	var req moduleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.apply(&module)
	if err := module.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	if err := tx.Save(&module).Error; err != nil {
		db.internalError(w, "UpdateModuleByID", "Failed to update module", err, zap.String("moduleID", module.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, module)
}

// DELETE /api/modules/{moduleID}
func (db *DBHandler) DeleteModuleByID(w http.ResponseWriter, r *http.Request) {
	module, err := db.findModule(r, db.WithContext(r.Context()), false)
	if err != nil {
		db.lookupError(w, "DeleteModuleByID", "Module", err)
		return
	}

	err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&models.QuizQuestion{}).Select("id").Where("module_id = ?", module.ID)
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&models.QuizAnswer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id = ?", module.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id = ?", module.ID).Delete(&models.ContentItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id = ?", module.ID).Delete(&models.ContentProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&module).Error
	})
	if err != nil {
		db.internalError(w, "DeleteModuleByID", "Failed to delete module", err, zap.String("moduleID", module.PublicID))
		return
	}

	db.Log.Info("DeleteModuleByID: deleted module", zap.String("moduleID", module.PublicID))
	w.WriteHeader(http.StatusNoContent)
}
