package seed_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/seed"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func TestQuizzesAreValidDrafts(t *testing.T) {
	for _, q := range seed.Quizzes() {
		q.CreatorID = "someone"
		assert.NoError(t, quiz.ValidateDraft(q), q.Title)
	}
}

func TestDemo_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	store := quiz.NewSQLStore(conn, nil)
	repo := users.NewRepo(conn, bcrypt.MinCost)

	require.NoError(t, seed.Demo(ctx, store, repo, "admin@example.com", "admin123", zap.NewNop()))
	require.NoError(t, seed.Demo(ctx, store, repo, "admin@example.com", "admin123", zap.NewNop()))

	admin, err := repo.Authenticate(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, admin.Role)
	_, err = repo.Authenticate(ctx, seed.StudentEmail, seed.StudentPassword)
	require.NoError(t, err)

	list, err := store.ListQuizzes(ctx, quiz.ListOpts{CreatorID: admin.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)

	// A perfect answer sheet for the seeded quiz scores 100.
	for _, s := range list {
		if s.Title != "JavaScript Fundamentals" {
			continue
		}
		q, err := store.GetQuizWithQuestions(ctx, s.ID)
		require.NoError(t, err)
		var answers []quiz.AnswerSubmission
		for _, qs := range q.Questions {
			a := quiz.AnswerSubmission{QuestionID: qs.ID}
			for _, o := range qs.Options {
				if o.IsCorrect {
					a.SelectedOptionIDs = append(a.SelectedOptionIDs, o.ID)
				}
			}
			answers = append(answers, a)
		}
		res, err := grading.NewGrader().Grade(q, answers)
		require.NoError(t, err)
		assert.Equal(t, 100, res.Score)
	}
}
