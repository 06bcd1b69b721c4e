package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	var errs validation.Errors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	return errs
}

func TestModuleValidate(t *testing.T) {
	assert.NoError(t, Module{Title: "Options 101", PassPercent: 70}.Validate())

	errs := fieldErrors(t, Module{Title: "", OrderIndex: -1, PassPercent: 101}.Validate())
	assert.True(t, errs.Has("title"))
	assert.True(t, errs.Has("order_index"))
	assert.True(t, errs.Has("pass_percent"))
}

func TestContentValidate(t *testing.T) {
	assert.NoError(t, ContentItem{Title: "Greeks", ContentType: "article", Body: "Delta is..."}.Validate())
	assert.NoError(t, ContentItem{Title: "Intro", ContentType: "video", URL: "https://cdn.example.com/v.mp4"}.Validate())

	errs := fieldErrors(t, ContentItem{Title: "Intro", ContentType: "video", URL: "ftp://x"}.Validate())
	assert.True(t, errs.Has("url"))

	errs = fieldErrors(t, ContentItem{Title: "Intro", ContentType: "article", OrderIndex: -2}.Validate())
	assert.True(t, errs.Has("body"))
	assert.True(t, errs.Has("order_index"))

	errs = fieldErrors(t, ContentItem{Title: "Intro", ContentType: "podcast"}.Validate())
	assert.True(t, errs.Has("content_type"))
}

func TestQuestionValidate(t *testing.T) {
	q := QuizQuestion{
		Prompt: "What does a long call profit from?",
		Answers: []QuizAnswer{
			{Text: "Rising price", IsCorrect: true},
			{Text: "Falling price"},
		},
	}
	assert.NoError(t, q.Validate())

	oneAnswer := q
	oneAnswer.Answers = q.Answers[:1]
	assert.True(t, fieldErrors(t, oneAnswer.Validate()).Has("answers"))

	noneCorrect := q
	noneCorrect.Answers = []QuizAnswer{{Text: "a"}, {Text: "b"}}
	assert.True(t, fieldErrors(t, noneCorrect.Validate()).Has("answers"))

	blank := q
	blank.Answers = []QuizAnswer{{Text: "a", IsCorrect: true}, {Text: " "}}
	assert.True(t, fieldErrors(t, blank.Validate()).Has("answers[1].text"))

	negative := q
	negative.OrderIndex = -1
	assert.True(t, fieldErrors(t, negative.Validate()).Has("order_index"))
}

func TestScoreQuiz(t *testing.T) {
	questions := []QuizQuestion{
		{PublicID: "q1", Answers: []QuizAnswer{{PublicID: "a1", IsCorrect: true}, {PublicID: "a2"}}},
		{PublicID: "q2", Answers: []QuizAnswer{{PublicID: "b1"}, {PublicID: "b2", IsCorrect: true}}},
		{PublicID: "q3", Answers: []QuizAnswer{{PublicID: "c1", IsCorrect: true}, {PublicID: "c2", IsCorrect: true}}},
	}

	correct, total, score, passed := ScoreQuiz(questions, map[string]string{"q1": "a1", "q2": "b2", "q3": "c2"}, 70)
	assert.Equal(t, 3, correct)
	assert.Equal(t, 3, total)
	assert.Equal(t, 100, score)
	assert.True(t, passed)

	// q2 answered with an answer from q1, q3 unanswered
	correct, _, score, passed = ScoreQuiz(questions, map[string]string{"q1": "a1", "q2": "a1"}, 70)
	assert.Equal(t, 1, correct)
	assert.Equal(t, 33, score)
	assert.False(t, passed)

	_, _, score, passed = ScoreQuiz(nil, nil, 0)
	assert.Zero(t, score)
	assert.False(t, passed)
}

func TestRedacted(t *testing.T) {
	q := QuizQuestion{Explanation: "because", Answers: []QuizAnswer{{IsCorrect: true}}}
	r := q.Redacted()
	assert.False(t, r.Answers[0].IsCorrect)
	assert.Empty(t, r.Explanation)
	assert.True(t, q.Answers[0].IsCorrect, "original must not change")
}

func TestPlanFeatures(t *testing.T) {
	p := Plan{Code: "pro", Name: "Pro", Currency: "INR", IntervalMonths: 1, Features: datatypes.JSON(`["premium_strategies","backtests"]`)}
	require.NoError(t, p.Validate())
	assert.True(t, p.HasFeature(FeaturePremiumStrategies))
	assert.False(t, p.HasFeature("signals"))

	p.Features = datatypes.JSON(`{"x":1}`)
	assert.True(t, fieldErrors(t, p.Validate()).Has("features"))
}

func TestSubscriptionEffective(t *testing.T) {
	now := time.Now()
	s := Subscription{Status: SubscriptionActive, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Effective(now))
	assert.False(t, s.Effective(now.Add(2*time.Hour)))
	s.Status = SubscriptionCancelled
	assert.False(t, s.Effective(now))
}

func TestProfileUpdate(t *testing.T) {
	phone, level := "+919876543210", "expert"
	upd := ProfileUpdate{Phone: &phone, ExperienceLevel: &level}
	require.NoError(t, upd.Validate())

	u := User{FullName: "kept"}
	upd.Apply(&u)
	assert.Equal(t, "kept", u.FullName)
	assert.Equal(t, phone, u.Phone)
	assert.Equal(t, "expert", u.ExperienceLevel)

	bad, risk := "12", "yolo"
	errs := fieldErrors(t, ProfileUpdate{Phone: &bad, RiskAppetite: &risk}.Validate())
	assert.True(t, errs.Has("phone"))
	assert.True(t, errs.Has("risk_appetite"))
}

func TestDraftName(t *testing.T) {
	assert.Equal(t, "Short straddle", DraftName("Short straddle"))
	long := strings.Repeat("ñ", 81)
	assert.Equal(t, strings.Repeat("ñ", 80), DraftName(long))
}
