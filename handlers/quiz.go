package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

type answerRequest struct {
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

type questionRequest struct {
	Prompt      *string          `json:"prompt"`
	Explanation *string          `json:"explanation"`
	OrderIndex  *int             `json:"order_index"`
	Answers     *[]answerRequest `json:"answers"`
}

// apply copies the request onto q. When answers are present they replace
// the existing set and get fresh public ids.
func (req questionRequest) apply(q *models.QuizQuestion) (replacedAnswers bool, err error) {
	if req.Prompt != nil {
		q.Prompt = *req.Prompt
	}
	if req.Explanation != nil {
		q.Explanation = *req.Explanation
	}
	if req.OrderIndex != nil {
		q.OrderIndex = *req.OrderIndex
	}
	if req.Answers == nil {
		return false, nil
	}
	answers := make([]models.QuizAnswer, 0, len(*req.Answers))
	for _, a := range *req.Answers {
		publicID, err := newPublicID()
		if err != nil {
			return false, err
		}
		answers = append(answers, models.QuizAnswer{
			PublicID:   publicID,
			QuestionID: q.ID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			OrderIndex: a.OrderIndex,
		})
	}
	q.Answers = answers
	return true, nil
}

func (db *DBHandler) findQuestion(r *http.Request, tx *gorm.DB, module models.Module) (models.QuizQuestion, error) {
	var question models.QuizQuestion
	err := tx.Preload("Answers", orderByIndex).
		Where("public_id = ? AND module_id = ?", r.PathValue("questionID"), module.ID).
		First(&question).Error
	return question, err
}

// POST /api/modules/{moduleID}/questions
func (db *DBHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "CreateQuestion", "Module", err)
		return
	}

	var req questionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	question := models.QuizQuestion{ModuleID: module.ID}
	if _, err := req.apply(&question); err != nil {
		db.internalError(w, "CreateQuestion", "Failed to generate ID", err)
		return
	}
	if err := question.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}
	if question.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "CreateQuestion", "Failed to generate ID", err)
		return
	}

	// Answers are created with the question in the same transaction.
	if err := tx.Create(&question).Error; err != nil {
		db.internalError(w, "CreateQuestion", "Failed to create question", err, zap.String("moduleID", module.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, question)
}

// PUT /api/modules/{moduleID}/questions/{questionID}
func (db *DBHandler) UpdateQuestionByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "UpdateQuestionByID", "Module", err)
		return
	}
	question, err := db.findQuestion(r, tx, module)
	if err != nil {
		db.lookupError(w, "UpdateQuestionByID", "Question", err)
		return
	}

	var req questionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	replaced, err := req.apply(&question)
	if err != nil {
		db.internalError(w, "UpdateQuestionByID", "Failed to generate ID", err)
		return
	}
	if err := question.Validate(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(&question).Error; err != nil {
			return err
		}
		if !replaced {
			return nil
		}
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuizAnswer{}).Error; err != nil {
			return err
		}
		return tx.Create(&question.Answers).Error
	})
	if err != nil {
		db.internalError(w, "UpdateQuestionByID", "Failed to update question", err, zap.String("questionID", question.PublicID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, question)
}

// DELETE /api/modules/{moduleID}/questions/{questionID}
func (db *DBHandler) DeleteQuestionByID(w http.ResponseWriter, r *http.Request) {
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, false)
	if err != nil {
		db.lookupError(w, "DeleteQuestionByID", "Module", err)
		return
	}
	question, err := db.findQuestion(r, tx, module)
	if err != nil {
		db.lookupError(w, "DeleteQuestionByID", "Question", err)
		return
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuizAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&question).Error
	})
	if err != nil {
		db.internalError(w, "DeleteQuestionByID", "Failed to delete question", err, zap.String("questionID", question.PublicID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type questionResult struct {
	QuestionID       string   `json:"question_id"`
	Correct          bool     `json:"correct"`
	CorrectAnswerIDs []string `json:"correct_answer_ids"`
	Explanation      string   `json:"explanation,omitempty"`
}

type attemptResponse struct {
	models.QuizAttempt
	Results []questionResult `json:"results"`
}

// POST /api/modules/{moduleID}/attempts
func (db *DBHandler) SubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	module, err := db.findModule(r, tx, true)
	if err != nil {
		db.lookupError(w, "SubmitQuizAttempt", "Module", err)
		return
	}
	if len(module.Questions) == 0 {
		utils.WriteError(w, http.StatusConflict, "Module has no quiz")
		return
	}

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}

	correct, total, score, passed := models.ScoreQuiz(module.Questions, req.Answers, module.PassPercent)

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid answers")
		return
	}
	attempt := models.QuizAttempt{
		UserID:   user.ID,
		ModuleID: module.ID,
		Answers:  datatypes.JSON(answersJSON),
		Correct:  correct,
		Total:    total,
		Score:    score,
		Passed:   passed,
	}
	if attempt.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "SubmitQuizAttempt", "Failed to generate ID", err)
		return
	}
	if err := tx.Create(&attempt).Error; err != nil {
		db.internalError(w, "SubmitQuizAttempt", "Failed to save attempt", err, zap.String("moduleID", module.PublicID))
		return
	}

	results := make([]questionResult, 0, len(module.Questions))
	for _, q := range module.Questions {
		res := questionResult{
			QuestionID:       q.PublicID,
			Correct:          q.IsCorrectAnswer(req.Answers[q.PublicID]),
			CorrectAnswerIDs: []string{},
			Explanation:      q.Explanation,
		}
		for _, a := range q.Answers {
			if a.IsCorrect {
				res.CorrectAnswerIDs = append(res.CorrectAnswerIDs, a.PublicID)
			}
		}
		results = append(results, res)
	}

	db.Log.Info("SubmitQuizAttempt: graded attempt",
		zap.String("moduleID", module.PublicID), zap.Int("score", score), zap.Bool("passed", passed))
	utils.WriteJSON(w, http.StatusCreated, attemptResponse{QuizAttempt: attempt, Results: results})
}
