package grading

import (
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Result is the outcome of grading one submission against one quiz.
type Result struct {
	Score          int                 // 0..100, rounded half up
	Passed         bool                // Score >= quiz.PassingScore
	CorrectCount   int                 // questions answered exactly right
	TotalQuestions int                 // questions in the quiz
	Answers        []quiz.GradedAnswer // one per question, quiz order
}

// Strategy decides whether a selection answers a question correctly.
type Strategy interface {
	Correct(q quiz.Question, selected map[string]struct{}) bool
}

// Grader routes by question type to the correct Strategy.
type Grader struct {
	strategies map[quiz.QuestionType]Strategy
}

// NewGrader installs built-in strategies. Both supported question types
// grade by exact set match; there is no partial credit.
func NewGrader() *Grader {
	return &Grader{
		strategies: map[quiz.QuestionType]Strategy{
			quiz.MultipleChoice: exactMatch{},
			quiz.TrueFalse:      exactMatch{},
		},
	}
}

// Grade scores answers against q. It is pure: no I/O, no mutation of its
// inputs, and the same inputs always give the same Result.
//
// Answers for questions not in q are dropped. A question without an answer
// is graded as an empty selection. A quiz without questions fails with
// quiz.ErrEmptyQuiz instead of scoring.
func (g *Grader) Grade(q quiz.Quiz, answers []quiz.AnswerSubmission) (Result, error) {
	total := len(q.Questions)
	if total == 0 {
		return Result{}, fmt.Errorf("grade quiz %s: %w", q.ID, quiz.ErrEmptyQuiz)
	}

	byQuestion := make(map[string][]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a.SelectedOptionIDs...)
	}

	res := Result{TotalQuestions: total, Answers: make([]quiz.GradedAnswer, 0, total)}
	for _, qs := range q.Questions {
		s, ok := g.strategies[qs.Type]
		if !ok {
			return Result{}, &quiz.ValidationError{Field: "question " + qs.ID, Reason: fmt.Sprintf("unsupported question type %q", qs.Type)}
		}
		selected := uniqueInOrder(byQuestion[qs.ID])
		correct := s.Correct(qs, toSet(selected))
		if correct {
			res.CorrectCount++
		}
		res.Answers = append(res.Answers, quiz.GradedAnswer{
			QuestionID:        qs.ID,
			SelectedOptionIDs: selected,
			IsCorrect:         correct,
		})
	}

	res.Score = Percent(res.CorrectCount, total)
	res.Passed = res.Score >= q.PassingScore
	return res, nil
}

// Percent returns round(part/total*100) with halves rounded up, in integer
// arithmetic so 5/8 gives 63 and never 62.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// CorrectOptionIDs is the answer key of a question.
func CorrectOptionIDs(q quiz.Question) map[string]struct{} {
	out := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if o.IsCorrect {
			out[o.ID] = struct{}{}
		}
	}
	return out
}

// --- Strategies ---

type exactMatch struct{}

func (exactMatch) Correct(q quiz.Question, selected map[string]struct{}) bool {
	return setEqual(CorrectOptionIDs(q), selected)
}

// helpers

func uniqueInOrder(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
