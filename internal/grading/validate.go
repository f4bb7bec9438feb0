package grading

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Validate rejects submissions that are malformed for q. Entries for
// questions q does not have are not an error; Grade ignores them.
func Validate(q quiz.Quiz, answers []quiz.AnswerSubmission) error {
	questions := make(map[string]quiz.Question, len(q.Questions))
	for _, qs := range q.Questions {
		questions[qs.ID] = qs
	}
	seen := make(map[string]bool, len(answers))
	for i, a := range answers {
		field := fmt.Sprintf("answers[%d]", i)
		if strings.TrimSpace(a.QuestionID) == "" {
			return &quiz.ValidationError{Field: field + ".questionId", Reason: "required"}
		}
		qs, known := questions[a.QuestionID]
		if !known {
			continue
		}
		if seen[a.QuestionID] {
			return &quiz.ValidationError{Field: field, Reason: "question " + a.QuestionID + " answered more than once"}
		}
		seen[a.QuestionID] = true

		options := make(map[string]struct{}, len(qs.Options))
		for _, o := range qs.Options {
			options[o.ID] = struct{}{}
		}
		for _, id := range a.SelectedOptionIDs {
			if strings.TrimSpace(id) == "" {
				return &quiz.ValidationError{Field: field + ".selectedOptionIds", Reason: "empty option id"}
			}
			if _, ok := options[id]; !ok {
				return &quiz.ValidationError{Field: field + ".selectedOptionIds", Reason: "option " + id + " does not belong to question " + qs.ID}
			}
		}
		if qs.Type == quiz.TrueFalse && len(toSet(a.SelectedOptionIDs)) > 1 {
			return &quiz.ValidationError{Field: field + ".selectedOptionIds", Reason: "true/false questions take a single answer"}
		}
	}
	return nil
}
