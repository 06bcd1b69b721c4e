package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

// Module is one education module: ordered content followed by a quiz.
type Module struct {
	Base
	PublicID    string `gorm:"size:32;uniqueIndex" json:"id"`
	Title       string `gorm:"not null;size:150" json:"title"`
	Description string `gorm:"size:2000" json:"description"`
	OrderIndex  int    `gorm:"not null;default:0" json:"order_index"`
	PassPercent int    `gorm:"not null;default:70" json:"pass_percent"`
	IsPublished bool   `gorm:"default:false" json:"is_published"`

	Contents  []ContentItem  `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"contents,omitempty"`
	Questions []QuizQuestion `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (m Module) Validate() error {
	var errs validation.Errors
	errs.Length("title", m.Title, 1, 150)
	errs.Length("description", m.Description, 0, 2000)
	errs.NonNegative("order_index", m.OrderIndex)
	errs.Range("pass_percent", m.PassPercent, 0, 100)
	return errs.Err()
}

var ContentTypes = []string{"video", "article", "pdf", "link"}

type ContentItem struct {
	Base
	PublicID        string `gorm:"size:32;uniqueIndex" json:"id"`
	ModuleID        uint   `gorm:"not null;index" json:"-"`
	Title           string `gorm:"not null;size:150" json:"title"`
	ContentType     string `gorm:"not null;size:20" json:"content_type"`
	URL             string `gorm:"size:1000" json:"url,omitempty"`
	Body            string `gorm:"type:text" json:"body,omitempty"`
	DurationMinutes int    `gorm:"default:0" json:"duration_minutes"`
	OrderIndex      int    `gorm:"not null;default:0" json:"order_index"`
}

func (c ContentItem) Validate() error {
	var errs validation.Errors
	errs.Length("title", c.Title, 1, 150)
	errs.OneOf("content_type", c.ContentType, ContentTypes...)
	errs.NonNegative("order_index", c.OrderIndex)
	errs.NonNegative("duration_minutes", c.DurationMinutes)

	switch c.ContentType {
	case "article":
		errs.Length("body", c.Body, 1, 0)
	case "video", "pdf", "link":
		if c.URL == "" {
			errs.Add("url", "is required")
		} else {
			errs.HTTPURL("url", c.URL)
		}
	}
	return errs.Err()
}

const (
	MinAnswers = 2
	MaxAnswers = 6
)

type QuizQuestion struct {
	Base
	PublicID    string       `gorm:"size:32;uniqueIndex" json:"id"`
	ModuleID    uint         `gorm:"not null;index" json:"-"`
	Prompt      string       `gorm:"not null;size:1000" json:"prompt"`
	Explanation string       `gorm:"size:2000" json:"explanation,omitempty"`
	OrderIndex  int          `gorm:"not null;default:0" json:"order_index"`
	Answers     []QuizAnswer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers"`
}

type QuizAnswer struct {
	Base
	PublicID   string `gorm:"size:32;uniqueIndex" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"-"`
	Text       string `gorm:"not null;size:500" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct,omitempty"`
	OrderIndex int    `gorm:"not null;default:0" json:"order_index"`
}

func (q QuizQuestion) Validate() error {
	var errs validation.Errors
	errs.Length("prompt", q.Prompt, 1, 1000)
	errs.Length("explanation", q.Explanation, 0, 2000)
	errs.NonNegative("order_index", q.OrderIndex)

	if len(q.Answers) < MinAnswers || len(q.Answers) > MaxAnswers {
		errs.Add("answers", "must have between %d and %d answers", MinAnswers, MaxAnswers)
	}
	correct := 0
	for i, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
		var ae validation.Errors
		ae.Length("text", a.Text, 1, 500)
		ae.NonNegative("order_index", a.OrderIndex)
		errs.Merge(answerField(i), ae.Err())
	}
	if len(q.Answers) > 0 && correct == 0 {
		errs.Add("answers", "mark at least one answer as correct")
	}
	return errs.Err()
}

func answerField(i int) string {
	return "answers[" + strconv.Itoa(i) + "]"
}

// Redacted returns a copy with correct-answer flags and explanation removed.
func (q QuizQuestion) Redacted() QuizQuestion {
	answers := make([]QuizAnswer, len(q.Answers))
	for i, a := range q.Answers {
		a.IsCorrect = false
		answers[i] = a
	}
	q.Answers = answers
	q.Explanation = ""
	return q
}

// IsCorrectAnswer reports whether answerID is one of q's correct answers.
func (q QuizQuestion) IsCorrectAnswer(answerID string) bool {
	for _, a := range q.Answers {
		if a.PublicID == answerID {
			return a.IsCorrect
		}
	}
	return false
}

type QuizAttempt struct {
	Base
	PublicID string         `gorm:"size:32;uniqueIndex" json:"id"`
	UserID   uint           `gorm:"not null;index" json:"-"`
	ModuleID uint           `gorm:"not null;index" json:"-"`
	Answers  datatypes.JSON `json:"answers"`
	Correct  int            `json:"correct"`
	Total    int            `json:"total"`
	Score    int            `json:"score"`
	Passed   bool           `json:"passed"`
}

// ContentProgress records that a user finished a content item.
type ContentProgress struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_progress_user_content" json:"-"`
	ContentID   uint      `gorm:"not null;uniqueIndex:idx_progress_user_content" json:"-"`
	ModuleID    uint      `gorm:"not null;index" json:"-"`
	CompletedAt time.Time `json:"completed_at"`
}

// ScoreQuiz grades answers (question public id -> answer public id).
// Unanswered questions and answers that do not belong to the question
// count as wrong. Score is floor(100*correct/total).
func ScoreQuiz(questions []QuizQuestion, answers map[string]string, passPercent int) (correct, total, score int, passed bool) {
	total = len(questions)
	for _, q := range questions {
		if id, ok := answers[q.PublicID]; ok && q.IsCorrectAnswer(id) {
			correct++
		}
	}
	if total > 0 {
		score = correct * 100 / total
	}
	passed = total > 0 && score >= passPercent
	return correct, total, score, passed
}
