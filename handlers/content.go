package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

type contentRequest struct {
	Title           *string `json:"title"`
	ContentType     *string `json:"content_type"`
	URL             *string `json:"url"`
	Body            *string `json:"body"`
	DurationMinutes *int    `json:"duration_minutes"`
	OrderIndex      *int    `json:"order_index"`
}

func (req contentRequest) apply(c *models.ContentItem) {
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.ContentType != nil {
		c.ContentType = *req.ContentType
	}
	if req.URL != nil {
		c.URL = *req.URL
	}
	if req.Body != nil {
		c.Body = *req.Body
	}
	if req.DurationMinutes != nil {
		c.DurationMinutes = *req.DurationMinutes
	}
	if req.OrderIndex != nil {
		c.OrderIndex = *req.OrderIndex
	}
}

func (db *DBHandler) findContent(r *http.Request, tx *gorm.DB, module models.Module) (models.ContentItem, error) {
	var content models.ContentItem
	err := tx.Where("public_id = ? AND module_id = ?", r.PathValue("contentID"), module.ID).First(&content).Error
	return content, err
}

// POST /api/modules/{moduleID}/contents
func (db *DBHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "CreateContent", "Module", err)
		return
	}

	var req contentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := models.ContentItem{ModuleID: module.ID}
	req.apply(&content)
	if err := content.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	if content.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "CreateContent", "Failed to generate ID", err)
		return
	}
	if err := tx.Create(&content).Error; err != nil {
		db.internalError(w, "CreateContent", "Failed to create content", err, zap.String("moduleID", module.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, content)
}

// PUT /api/modules/{moduleID}/contents/{contentID}
func (db *DBHandler) UpdateContentByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "UpdateContentByID", "Module", err)
		return
	}
	content, err := db.findContent(r, tx, module)
	if err != nil {
		db.lookupError(w, "UpdateContentByID", "Content", err)
		return
	}

	var req contentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.apply(&content)
	if err := content.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	if err := tx.Save(&content).Error; err != nil {
		db.internalError(w, "UpdateContentByID", "Failed to update content", err, zap.String("contentID", content.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, content)
}

// DELETE /api/modules/{moduleID}/contents/{contentID}
func (db *DBHandler) DeleteContentByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "DeleteContentByID", "Module", err)
		return
	}
	content, err := db.findContent(r, tx, module)
	if err != nil {
		db.lookupError(w, "DeleteContentByID", "Content", err)
		return
	}

	if err := tx.Delete(&content).Error; err != nil {
		db.internalError(w, "DeleteContentByID", "Failed to delete content", err, zap.String("contentID", content.PublicID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/modules/{moduleID}/contents/{contentID}/complete
func (db *DBHandler) CompleteContent(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "CompleteContent", "Module", err)
		return
	}
	content, err := db.findContent(r, tx, module)
	if err != nil {
		db.lookupError(w, "CompleteContent", "Content", err)
		return
	}

	progress := models.ContentProgress{
		UserID:      user.ID,
		ContentID:   content.ID,
		ModuleID:    module.ID,
		CompletedAt: db.Now(),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
		DoNothing: true,
	}).Create(&progress).Error
	if err != nil {
		db.internalError(w, "CompleteContent", "Failed to record progress", err, zap.String("contentID", content.PublicID))
		return
	}

	progressList, err := db.moduleProgress(tx, user.ID, []models.Module{module})
	if err != nil {
		db.internalError(w, "CompleteContent", "Failed to load progress", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, progressList[0])
}
