package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/ledger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

/* ---------------- fixtures ---------------- */

func seedQuiz(t *testing.T, s quiz.QuizStore, passing int) quiz.Quiz {
	t.Helper()
	q, err := s.CreateQuiz(context.Background(), quiz.Quiz{
		ID:           "quiz-1",
		Title:        "Go basics",
		PassingScore: passing,
		IsActive:     true,
		CreatorID:    "admin-1",
		Questions: []quiz.Question{
			{ID: "q1", Type: quiz.MultipleChoice, Text: "Pick the reference types", Options: []quiz.Option{
				{ID: "q1-a", Text: "map", IsCorrect: true},
				{ID: "q1-b", Text: "int"},
				{ID: "q1-c", Text: "chan", IsCorrect: true},
			}},
			{ID: "q2", Type: quiz.TrueFalse, Text: "Go has generics", Options: []quiz.Option{
				{ID: "q2-t", Text: "True", IsCorrect: true},
				{ID: "q2-f", Text: "False"},
			}},
		},
	})
	require.NoError(t, err)
	return q
}

func allRight() []quiz.AnswerSubmission {
	return []quiz.AnswerSubmission{
		{QuestionID: "q1", SelectedOptionIDs: []string{"q1-c", "q1-a"}},
		{QuestionID: "q2", SelectedOptionIDs: []string{"q2-t"}},
	}
}

func halfRight() []quiz.AnswerSubmission {
	return []quiz.AnswerSubmission{
		{QuestionID: "q1", SelectedOptionIDs: []string{"q1-a"}},
		{QuestionID: "q2", SelectedOptionIDs: []string{"q2-t"}},
	}
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorder) ObserveSubmission(outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// failingStore fails every CreateAttempt.
type failingStore struct {
	*quiz.MemoryStore
	err error
}

func (f failingStore) CreateAttempt(context.Context, quiz.Attempt) (quiz.Attempt, error) {
	return quiz.Attempt{}, f.err
}

func intp(v int) *int { return &v }

/* ---------------- submit ---------------- */

func TestSubmit_HappyPath(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	rec := &recorder{}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := ledger.New(store, ledger.WithRecorder(rec), ledger.WithClock(func() time.Time { return now }))

	res, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), intp(90))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.NotEmpty(t, res.AttemptID)
	assert.Equal(t, now, res.CompletedAt)

	stored, err := l.Attempt(context.Background(), res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, "student-1", stored.UserID)
	assert.Equal(t, now.Add(-90*time.Second), stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, now, *stored.CompletedAt)
	require.NotNil(t, stored.TimeSpent)
	assert.Equal(t, 90, *stored.TimeSpent)
	require.Len(t, stored.Answers, 2)
	for _, a := range stored.Answers {
		assert.Equal(t, res.AttemptID, a.AttemptID)
		assert.True(t, a.IsCorrect)
	}
	assert.Equal(t, []string{ledger.OutcomePassed}, rec.outcomes)
}

func TestSubmit_FailingScore(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store)

	res, err := l.Submit(context.Background(), "student-1", "quiz-1", halfRight(), nil)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.False(t, res.Passed)

	stored, err := l.Attempt(context.Background(), res.AttemptID)
	require.NoError(t, err)
	assert.Nil(t, stored.TimeSpent)
	assert.Equal(t, *stored.CompletedAt, stored.StartedAt)
}

func TestSubmit_AlreadyCompleted(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	rec := &recorder{}
	l := ledger.New(store, ledger.WithRecorder(rec))

	first, err := l.Submit(context.Background(), "student-1", "quiz-1", halfRight(), nil)
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), "student-1", "quiz-1", allRight(), nil)
	require.ErrorIs(t, err, quiz.ErrAlreadyCompleted)

	list, err := l.AttemptsForUser(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.AttemptID, list[0].ID)
	assert.Equal(t, 50, list[0].Score)
	assert.Equal(t, []string{ledger.OutcomeFailed, ledger.OutcomeAlreadyCompleted}, rec.outcomes)

	// Another user is unaffected.
	_, err = l.Submit(context.Background(), "student-2", "quiz-1", allRight(), nil)
	require.NoError(t, err)
}

func TestSubmit_NotFound(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store)

	_, err := l.Submit(context.Background(), "student-1", "nope", allRight(), nil)
	require.ErrorIs(t, err, quiz.ErrNotFound)

	inactive := false
	_, err = store.UpdateQuiz(context.Background(), "quiz-1", quiz.Patch{IsActive: &inactive})
	require.NoError(t, err)
	_, err = l.Submit(context.Background(), "student-1", "quiz-1", allRight(), nil)
	require.ErrorIs(t, err, quiz.ErrNotFound)

	list, err := l.AttemptsForQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_Validation(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store)

	_, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), intp(-1))
	require.ErrorIs(t, err, quiz.ErrValidation)

	_, err = l.Submit(context.Background(), "", "quiz-1", allRight(), nil)
	require.ErrorIs(t, err, quiz.ErrValidation)

	_, err = l.Submit(context.Background(), "student-1", "quiz-1", []quiz.AnswerSubmission{
		{QuestionID: "q2", SelectedOptionIDs: []string{"q2-t", "q2-f"}},
	}, nil)
	require.ErrorIs(t, err, quiz.ErrValidation)

	// Rejected submissions do not consume the single attempt.
	_, err = l.Submit(context.Background(), "student-1", "quiz-1", allRight(), intp(0))
	require.NoError(t, err)
}

func TestSubmit_TimeSpentBound(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := ledger.New(store, ledger.WithClock(func() time.Time { return now }))

	for _, v := range []int{ledger.MaxTimeSpent + 1, 1 << 40} {
		_, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), intp(v))
		var ve *quiz.ValidationError
		require.ErrorAs(t, err, &ve, "timeSpent=%d", v)
		assert.Equal(t, "timeSpent", ve.Field)
	}
	n, err := store.ListAttemptsByUser(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Empty(t, n)

	res, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), intp(ledger.MaxTimeSpent))
	require.NoError(t, err)
	a, err := store.GetAttempt(context.Background(), res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Duration(ledger.MaxTimeSpent)*time.Second), a.StartedAt)
	assert.True(t, a.StartedAt.Before(*a.CompletedAt))
}

func TestSubmit_EmptyQuiz(t *testing.T) {
	store := emptyQuizStore{quiz.NewMemoryStore()}
	l := ledger.New(store)
	_, err := l.Submit(context.Background(), "student-1", "empty", nil, nil)
	require.ErrorIs(t, err, quiz.ErrEmptyQuiz)
}

// emptyQuizStore serves a quiz without questions, which CreateQuiz refuses
// to store.
type emptyQuizStore struct{ *quiz.MemoryStore }

func (emptyQuizStore) GetQuizWithQuestions(_ context.Context, id string) (quiz.Quiz, error) {
	return quiz.Quiz{ID: id, Title: "Empty", IsActive: true, PassingScore: 50}, nil
}

func TestSubmit_StorageFailureLeavesNothing(t *testing.T) {
	mem := quiz.NewMemoryStore()
	seedQuiz(t, mem, 70)
	boom := errors.New("disk on fire")
	rec := &recorder{}
	l := ledger.New(failingStore{MemoryStore: mem, err: boom}, ledger.WithRecorder(rec))

	_, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), nil)
	require.ErrorIs(t, err, quiz.ErrStorage)
	require.ErrorIs(t, err, boom)
	var se *quiz.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create attempt", se.Op)
	assert.Equal(t, []string{ledger.OutcomeStorageError}, rec.outcomes)

	list, err := mem.ListAttemptsByUser(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_CancelledContext(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Submit(ctx, "student-1", "quiz-1", allRight(), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, quiz.ErrStorage)

	_, err = l.Submit(context.Background(), "student-1", "quiz-1", allRight(), nil)
	require.NoError(t, err)
}

func TestSubmit_ConcurrentSingleWinner(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store)

	const n = 16
	var (
		mu        sync.Mutex
		successes int
		conflicts int
	)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := l.Submit(context.Background(), "student-1", "quiz-1", allRight(), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, quiz.ErrAlreadyCompleted):
				conflicts++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	list, err := l.AttemptsForQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

/* ---------------- read side ---------------- */

func TestSummarize(t *testing.T) {
	assert.Equal(t, ledger.Stats{}, ledger.Summarize(nil))

	st := ledger.Summarize([]quiz.Attempt{
		{Score: 80, Passed: true},
		{Score: 60, Passed: true},
		{Score: 40, Passed: false},
	})
	assert.Equal(t, ledger.Stats{
		TotalAttempts:  3,
		PassedAttempts: 2,
		FailedAttempts: 1,
		PassRate:       66.67,
		AverageScore:   60,
	}, st)

	st = ledger.Summarize([]quiz.Attempt{{Score: 33}, {Score: 67, Passed: true}, {Score: 100, Passed: true}})
	assert.Equal(t, 66.67, st.AverageScore)
}

func TestQuizResults(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	l := ledger.New(store, ledger.WithClock(tickingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	_, err := l.Submit(ctx, "s1", "quiz-1", allRight(), nil)
	require.NoError(t, err)
	_, err = l.Submit(ctx, "s2", "quiz-1", halfRight(), nil)
	require.NoError(t, err)
	last, err := l.Submit(ctx, "s3", "quiz-1", allRight(), nil)
	require.NoError(t, err)

	res, err := l.QuizResults(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "quiz-1", res.Quiz.ID)
	assert.Nil(t, res.Quiz.Questions)
	assert.Equal(t, 3, res.Statistics.TotalAttempts)
	assert.Equal(t, 2, res.Statistics.PassedAttempts)
	assert.Equal(t, 66.67, res.Statistics.PassRate)
	assert.Equal(t, 83.33, res.Statistics.AverageScore)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, last.AttemptID, res.Attempts[0].ID)
	assert.Equal(t, []string{"s3", "s2", "s1"}, []string{res.Attempts[0].UserID, res.Attempts[1].UserID, res.Attempts[2].UserID})

	st, err := l.Summary(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, res.Statistics, st)

	_, err = l.QuizResults(ctx, "missing")
	require.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestAttemptsForUser_NewestFirst(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store, 70)
	_, err := store.CreateQuiz(context.Background(), quiz.Quiz{
		ID: "quiz-2", Title: "Second", PassingScore: 50, IsActive: true, CreatorID: "admin-1",
		Questions: []quiz.Question{{ID: "z1", Type: quiz.TrueFalse, Text: "?", Options: []quiz.Option{
			{ID: "z1-t", Text: "True", IsCorrect: true}, {ID: "z1-f", Text: "False"},
		}}},
	})
	require.NoError(t, err)
	l := ledger.New(store, ledger.WithClock(tickingClock(time.Now())))
	ctx := context.Background()

	_, err = l.Submit(ctx, "s1", "quiz-1", allRight(), nil)
	require.NoError(t, err)
	_, err = l.Submit(ctx, "s1", "quiz-2", nil, nil)
	require.NoError(t, err)

	list, err := l.AttemptsForUser(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "quiz-2", list[0].QuizID)
	assert.Equal(t, 0, list[0].Score)
	assert.Equal(t, "quiz-1", list[1].QuizID)

	_, err = l.Attempt(ctx, "missing")
	require.ErrorIs(t, err, quiz.ErrNotFound)
}
