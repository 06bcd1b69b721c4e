package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

type ModuleProgress struct {
	ModuleID         string `json:"module_id"`
	Title            string `json:"title"`
	CompletedContent int    `json:"completed_content"`
	TotalContent     int    `json:"total_content"`
	BestScore        *int   `json:"best_score"`
	Passed           bool   `json:"passed"`
}

type moduleCount struct {
	ModuleID uint
	N        int
}

type moduleBest struct {
	ModuleID uint
	Best     int
	Passed   bool
}

// moduleProgress summarises userID's progress through modules.
func (db *DBHandler) moduleProgress(tx *gorm.DB, userID uint, modules []models.Module) ([]ModuleProgress, error) {
	ids := make([]uint, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}

	var totals, completed []moduleCount
	if err := tx.Model(&models.ContentItem{}).
		Select("module_id, count(*) as n").
		Where("module_id IN ?", ids).
		Group("module_id").Scan(&totals).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.ContentProgress{}).
		Select("content_progresses.module_id, count(*) as n").
		Joins("JOIN content_items ON content_items.id = content_progresses.content_id AND content_items.deleted_at IS NULL").
		Where("content_progresses.user_id = ? AND content_progresses.module_id IN ?", userID, ids).
		Group("content_progresses.module_id").Scan(&completed).Error; err != nil {
		return nil, err
	}
	var bests []moduleBest
	if err := tx.Model(&models.QuizAttempt{}).
		Select("module_id, max(score) as best, max(case when passed then 1 else 0 end) as passed").
		Where("user_id = ? AND module_id IN ?", userID, ids).
		Group("module_id").Scan(&bests).Error; err != nil {
		return nil, err
	}

	totalBy := make(map[uint]int, len(totals))
	for _, c := range totals {
		totalBy[c.ModuleID] = c.N
	}
	doneBy := make(map[uint]int, len(completed))
	for _, c := range completed {
		doneBy[c.ModuleID] = c.N
	}
	bestBy := make(map[uint]moduleBest, len(bests))
	for _, b := range bests {
		bestBy[b.ModuleID] = b
	}

	out := make([]ModuleProgress, 0, len(modules))
	for _, m := range modules {
		p := ModuleProgress{
			ModuleID:         m.PublicID,
			Title:            m.Title,
			CompletedContent: doneBy[m.ID],
			TotalContent:     totalBy[m.ID],
		}
		if b, ok := bestBy[m.ID]; ok {
			best := b.Best
			p.BestScore = &best
			p.Passed = b.Passed
		}
		out = append(out, p)
	}
	return out, nil
}

func (db *DBHandler) myProgress(tx *gorm.DB, userID uint) ([]ModuleProgress, error) {
	var modules []models.Module
	if err := tx.Scopes(orderByIndex).Where("is_published = ?", true).Find(&modules).Error; err != nil {
		return nil, err
	}
	return db.moduleProgress(tx, userID, modules)
}

// GET /api/me/progress
func (db *DBHandler) GetMyProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	progress, err := db.myProgress(db.WithContext(r.Context()), user.ID)
	if err != nil {
		db.internalError(w, "GetMyProgress", "Failed to load progress", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, progress)
}
