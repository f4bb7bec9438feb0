package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestValidateDraft(t *testing.T) {
	id := newIDs()
	cases := []struct {
		name   string
		mutate func(q *quiz.Quiz)
		field  string
	}{
		{"valid", func(*quiz.Quiz) {}, ""},
		{"no title", func(q *quiz.Quiz) { q.Title = "  " }, "title"},
		{"score too high", func(q *quiz.Quiz) { q.PassingScore = 101 }, "passingScore"},
		{"score negative", func(q *quiz.Quiz) { q.PassingScore = -1 }, "passingScore"},
		{"zero time limit", func(q *quiz.Quiz) { q.TimeLimit = intp(0) }, "timeLimit"},
		{"no creator", func(q *quiz.Quiz) { q.CreatorID = "" }, "creatorId"},
		{"no questions", func(q *quiz.Quiz) { q.Questions = nil }, "questions"},
		{"question text", func(q *quiz.Quiz) { q.Questions[1].Text = "" }, "questions[1].text"},
		{"unknown type", func(q *quiz.Quiz) { q.Questions[0].Type = "ESSAY" }, "questions[0].type"},
		{"one option", func(q *quiz.Quiz) { q.Questions[0].Options = q.Questions[0].Options[:1] }, "questions[0].options"},
		{"option text", func(q *quiz.Quiz) { q.Questions[0].Options[1].Text = "" }, "questions[0].options[1].text"},
		{"nothing correct", func(q *quiz.Quiz) { q.Questions[0].Options[0].IsCorrect = false }, "questions[0].options"},
		{"true/false both correct", func(q *quiz.Quiz) { q.Questions[1].Options[1].IsCorrect = true }, "questions[1].options"},
		{"true/false three options", func(q *quiz.Quiz) {
			q.Questions[1].Options = append(q.Questions[1].Options, quiz.Option{Text: "Maybe"})
		}, "questions[1].options"},
		{"multiple choice many correct", func(q *quiz.Quiz) { q.Questions[0].Options[1].IsCorrect = true }, ""},
		{"duplicate option id", func(q *quiz.Quiz) { q.Questions[0].Options[1].ID = q.Questions[0].Options[0].ID }, "questions[0].options[1].id"},
		{"option id reused across questions", func(q *quiz.Quiz) { q.Questions[1].Options[0].ID = q.Questions[0].Options[0].ID }, "questions[1].options[0].id"},
		{"duplicate question id", func(q *quiz.Quiz) { q.Questions[1].ID = q.Questions[0].ID }, "questions[1].id"},
		{"question and option may share an id", func(q *quiz.Quiz) { q.Questions[0].Options[0].ID = q.Questions[0].ID }, ""},
		{"empty ids are assigned later", func(q *quiz.Quiz) {
			q.Questions[0].ID, q.Questions[1].ID = "", ""
			q.Questions[0].Options[0].ID, q.Questions[0].Options[1].ID = "", ""
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := draft("admin", id)
			tc.mutate(&q)
			err := quiz.ValidateDraft(q)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *quiz.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.ErrorIs(t, err, quiz.ErrValidation)
		})
	}
}

func TestValidatePatch(t *testing.T) {
	empty, zero, over := " ", 0, 101
	assert.NoError(t, quiz.ValidatePatch(quiz.Patch{}))
	assert.ErrorIs(t, quiz.ValidatePatch(quiz.Patch{Title: &empty}), quiz.ErrValidation)
	assert.ErrorIs(t, quiz.ValidatePatch(quiz.Patch{TimeLimit: &zero}), quiz.ErrValidation)
	assert.ErrorIs(t, quiz.ValidatePatch(quiz.Patch{PassingScore: &over}), quiz.ErrValidation)
	assert.NoError(t, quiz.ValidatePatch(quiz.Patch{PassingScore: &zero}))
}

func TestStorageError(t *testing.T) {
	inner := assert.AnError
	err := error(&quiz.StorageError{Op: "create attempt", Err: inner})
	assert.ErrorIs(t, err, quiz.ErrStorage)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "storage: create attempt: "+inner.Error(), err.Error())
}
