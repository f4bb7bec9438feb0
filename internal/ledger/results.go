package ledger

import (
	"context"
	"math"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Stats struct {
	TotalAttempts  int     `json:"totalAttempts"`
	PassedAttempts int     `json:"passedAttempts"`
	FailedAttempts int     `json:"failedAttempts"`
	PassRate       float64 `json:"passRate"`     // percent, two decimals
	AverageScore   float64 `json:"averageScore"` // two decimals
}

// Summarize aggregates attempts. Empty input yields all zeros.
func Summarize(attempts []quiz.Attempt) Stats {
	st := Stats{TotalAttempts: len(attempts)}
	if st.TotalAttempts == 0 {
		return st
	}
	sum := 0
	for _, a := range attempts {
		sum += a.Score
		if a.Passed {
			st.PassedAttempts++
		}
	}
	st.FailedAttempts = st.TotalAttempts - st.PassedAttempts
	st.PassRate = round2(float64(st.PassedAttempts) / float64(st.TotalAttempts) * 100)
	st.AverageScore = round2(float64(sum) / float64(st.TotalAttempts))
	return st
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Results is the admin report for one quiz.
type Results struct {
	Quiz       quiz.Quiz      `json:"quiz"`
	Statistics Stats          `json:"statistics"`
	Attempts   []quiz.Attempt `json:"attempts"`
}

func (l *Ledger) QuizResults(ctx context.Context, quizID string) (Results, error) {
	q, err := l.store.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return Results{}, translate("load quiz", err)
	}
	attempts, err := l.AttemptsForQuiz(ctx, quizID)
	if err != nil {
		return Results{}, err
	}
	q.Questions = nil
	return Results{Quiz: q, Statistics: Summarize(attempts), Attempts: attempts}, nil
}

// Summary is the statistics part of QuizResults.
func (l *Ledger) Summary(ctx context.Context, quizID string) (Stats, error) {
	attempts, err := l.AttemptsForQuiz(ctx, quizID)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(attempts), nil
}

// AttemptsForQuiz lists attempts newest first.
func (l *Ledger) AttemptsForQuiz(ctx context.Context, quizID string) ([]quiz.Attempt, error) {
	list, err := l.store.ListAttemptsByQuiz(ctx, quizID)
	if err != nil {
		return nil, translate("list attempts by quiz", err)
	}
	return list, nil
}

// AttemptsForUser lists attempts newest first.
func (l *Ledger) AttemptsForUser(ctx context.Context, userID string) ([]quiz.Attempt, error) {
	list, err := l.store.ListAttemptsByUser(ctx, userID)
	if err != nil {
		return nil, translate("list attempts by user", err)
	}
	return list, nil
}

// Attempt returns one attempt with its graded answers.
func (l *Ledger) Attempt(ctx context.Context, id string) (quiz.Attempt, error) {
	a, err := l.store.GetAttempt(ctx, id)
	if err != nil {
		return quiz.Attempt{}, translate("get attempt", err)
	}
	return a, nil
}
