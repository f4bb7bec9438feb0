package quiz

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidateDraft checks a quiz tree before it is written. Grading tolerates
// malformed questions, but authoring does not accept them. Caller-supplied
// question and option ids must be unique within the quiz; empty ids are
// assigned on write.
func ValidateDraft(q Quiz) error {
	if strings.TrimSpace(q.Title) == "" {
		return invalid("title", "required")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return invalid("passingScore", "must be between 0 and 100, got %d", q.PassingScore)
	}
	if q.TimeLimit != nil && *q.TimeLimit < 1 {
		return invalid("timeLimit", "must be at least 1 minute")
	}
	if strings.TrimSpace(q.CreatorID) == "" {
		return invalid("creatorId", "required")
	}
	if len(q.Questions) == 0 {
		return invalid("questions", "at least one question is required")
	}
	seen := idSet{}
	for i, qs := range q.Questions {
		if err := validateQuestion(i, qs, seen); err != nil {
			return err
		}
	}
	return nil
}

// idSet tracks ids already used in one quiz tree, keyed by kind.
type idSet map[[2]string]struct{}

func (s idSet) add(kind, id string) bool {
	if id == "" {
		return true
	}
	k := [2]string{kind, id}
	if _, dup := s[k]; dup {
		return false
	}
	s[k] = struct{}{}
	return true
}

func validateQuestion(i int, qs Question, seen idSet) error {
	field := func(name string) string {
		return "questions[" + strconv.Itoa(i) + "]." + name
	}
	if !seen.add("question", qs.ID) {
		return invalid(field("id"), "duplicate question id %q", qs.ID)
	}
	if strings.TrimSpace(qs.Text) == "" {
		return invalid(field("text"), "required")
	}
	if !qs.Type.Valid() {
		return invalid(field("type"), "unknown question type %q", qs.Type)
	}
	if len(qs.Options) < 2 {
		return invalid(field("options"), "at least two options are required")
	}
	correct := 0
	for j, o := range qs.Options {
		if strings.TrimSpace(o.Text) == "" {
			return invalid(field("options["+strconv.Itoa(j)+"].text"), "required")
		}
		if !seen.add("option", o.ID) {
			return invalid(field("options["+strconv.Itoa(j)+"].id"), "duplicate option id %q", o.ID)
		}
		if o.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return invalid(field("options"), "at least one option must be correct")
	}
	if qs.Type == TrueFalse && (len(qs.Options) != 2 || correct != 1) {
		return invalid(field("options"), "true/false questions need exactly two options and one correct answer")
	}
	return nil
}

func ValidatePatch(p Patch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if p.PassingScore != nil && (*p.PassingScore < 0 || *p.PassingScore > 100) {
		return invalid("passingScore", "must be between 0 and 100, got %d", *p.PassingScore)
	}
	if p.TimeLimit != nil && *p.TimeLimit < 1 {
		return invalid("timeLimit", "must be at least 1 minute")
	}
	return nil
}

func (p Patch) apply(q *Quiz, now time.Time) {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.PassingScore != nil {
		q.PassingScore = *p.PassingScore
	}
	if p.TimeLimit != nil {
		v := *p.TimeLimit
		q.TimeLimit = &v
	}
	if p.IsActive != nil {
		q.IsActive = *p.IsActive
	}
	q.UpdatedAt = now
}

// prepareNew fills ids, back-references and positions on a new quiz tree.
// Positions follow slice order and start at 1.
func prepareNew(q Quiz, now time.Time) Quiz {
	q = q.Clone()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt, q.UpdatedAt = now, now
	for i := range q.Questions {
		qs := &q.Questions[i]
		if qs.ID == "" {
			qs.ID = uuid.NewString()
		}
		qs.QuizID = q.ID
		qs.Order = i + 1
		for j := range qs.Options {
			o := &qs.Options[j]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.QuestionID = qs.ID
			o.Order = j + 1
		}
	}
	return q
}

func prepareAttempt(a Attempt) Attempt {
	a = a.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for i := range a.Answers {
		ga := &a.Answers[i]
		if ga.ID == "" {
			ga.ID = uuid.NewString()
		}
		ga.AttemptID = a.ID
	}
	return a
}
