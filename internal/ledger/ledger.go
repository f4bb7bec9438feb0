// Package ledger records quiz attempts: it grades a submission and persists
// the result, allowing at most one completed attempt per (user, quiz).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Submission outcomes reported to the Recorder.
const (
	OutcomePassed           = "passed"
	OutcomeFailed           = "failed"
	OutcomeAlreadyCompleted = "already_completed"
	OutcomeNotFound         = "not_found"
	OutcomeInvalid          = "invalid"
	OutcomeEmptyQuiz        = "empty_quiz"
	OutcomeStorageError     = "storage_error"
)

// Recorder observes submissions, e.g. for metrics.
type Recorder interface {
	ObserveSubmission(outcome string, score int)
}

// MaxTimeSpent is the largest accepted timeSpent, in seconds (one week).
const MaxTimeSpent = 7 * 24 * 60 * 60

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(string, int) {}

type Ledger struct {
	store  quiz.AttemptStore
	grader *grading.Grader
	log    *zap.Logger
	rec    Recorder
	now    func() time.Time
}

type Option func(*Ledger)

func WithLogger(l *zap.Logger) Option       { return func(x *Ledger) { x.log = l } }
func WithRecorder(r Recorder) Option        { return func(x *Ledger) { x.rec = r } }
func WithClock(now func() time.Time) Option { return func(x *Ledger) { x.now = now } }
func WithGrader(g *grading.Grader) Option   { return func(x *Ledger) { x.grader = g } }

func New(store quiz.AttemptStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		grader: grading.NewGrader(),
		log:    zap.NewNop(),
		rec:    nopRecorder{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Result is what a caller gets back from a successful submission.
type Result struct {
	AttemptID      string              `json:"attemptId"`
	Score          int                 `json:"score"`
	Passed         bool                `json:"passed"`
	CorrectCount   int                 `json:"correctCount"`
	TotalQuestions int                 `json:"totalQuestions"`
	CompletedAt    time.Time           `json:"completedAt"`
	Answers        []quiz.GradedAnswer `json:"answers"`
}

// Submit grades answers for quizID on behalf of userID and stores the
// attempt. userID is trusted: the caller has already authenticated it.
//
// Errors: quiz.ErrValidation, quiz.ErrNotFound (missing or inactive quiz),
// quiz.ErrAlreadyCompleted, quiz.ErrEmptyQuiz, quiz.ErrStorage. No retries.
func (l *Ledger) Submit(ctx context.Context, userID, quizID string, answers []quiz.AnswerSubmission, timeSpent *int) (Result, error) {
	log := l.log.With(zap.String("user_id", userID), zap.String("quiz_id", quizID))

	res, err := l.submit(ctx, userID, quizID, answers, timeSpent)
	outcome := outcomeOf(res, err)
	l.rec.ObserveSubmission(outcome, res.Score)
	switch outcome {
	case OutcomePassed, OutcomeFailed:
		log.Info("attempt recorded",
			zap.String("attempt_id", res.AttemptID),
			zap.Int("score", res.Score),
			zap.Bool("passed", res.Passed))
	case OutcomeStorageError, OutcomeEmptyQuiz:
		log.Error("submission failed", zap.String("outcome", outcome), zap.Error(err))
	default:
		log.Debug("submission rejected", zap.String("outcome", outcome), zap.Error(err))
	}
	return res, err
}

func (l *Ledger) submit(ctx context.Context, userID, quizID string, answers []quiz.AnswerSubmission, timeSpent *int) (Result, error) {
	if userID == "" {
		return Result{}, &quiz.ValidationError{Field: "userId", Reason: "required"}
	}
	if timeSpent != nil && *timeSpent < 0 {
		return Result{}, &quiz.ValidationError{Field: "timeSpent", Reason: "must not be negative"}
	}
	if timeSpent != nil && *timeSpent > MaxTimeSpent {
		return Result{}, &quiz.ValidationError{Field: "timeSpent", Reason: fmt.Sprintf("must be at most %d seconds", MaxTimeSpent)}
	}

	q, err := l.store.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return Result{}, translate("load quiz", err)
	}
	if !q.IsActive {
		return Result{}, quiz.ErrNotFound
	}

	prior, err := l.store.FindCompletedAttempt(ctx, userID, quizID)
	if err != nil {
		return Result{}, translate("find completed attempt", err)
	}
	if prior != nil {
		return Result{}, quiz.ErrAlreadyCompleted
	}

	if err := grading.Validate(q, answers); err != nil {
		return Result{}, err
	}
	graded, err := l.grader.Grade(q, answers)
	if err != nil {
		return Result{}, err
	}

	completedAt := l.now().UTC()
	startedAt := completedAt
	if timeSpent != nil {
		startedAt = completedAt.Add(-time.Duration(*timeSpent) * time.Second)
	}
	a, err := l.store.CreateAttempt(ctx, quiz.Attempt{
		UserID:      userID,
		QuizID:      quizID,
		Score:       graded.Score,
		Passed:      graded.Passed,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
		TimeSpent:   timeSpent,
		Answers:     graded.Answers,
	})
	if err != nil {
		return Result{}, translate("create attempt", err)
	}

	return Result{
		AttemptID:      a.ID,
		Score:          graded.Score,
		Passed:         graded.Passed,
		CorrectCount:   graded.CorrectCount,
		TotalQuestions: graded.TotalQuestions,
		CompletedAt:    completedAt,
		Answers:        a.Answers,
	}, nil
}

// translate maps store errors onto the ledger's taxonomy. Anything that is
// not already a known sentinel becomes a *quiz.StorageError.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, quiz.ErrAlreadyCompleted):
		return err
	case errors.Is(err, quiz.ErrStorage):
		return err
	default:
		return &quiz.StorageError{Op: op, Err: err}
	}
}

func outcomeOf(res Result, err error) string {
	switch {
	case err == nil && res.Passed:
		return OutcomePassed
	case err == nil:
		return OutcomeFailed
	case errors.Is(err, quiz.ErrAlreadyCompleted):
		return OutcomeAlreadyCompleted
	case errors.Is(err, quiz.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, quiz.ErrValidation):
		return OutcomeInvalid
	case errors.Is(err, quiz.ErrEmptyQuiz):
		return OutcomeEmptyQuiz
	default:
		return OutcomeStorageError
	}
}
