package quiz

import "time"

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
)

func (t QuestionType) Valid() bool {
	return t == MultipleChoice || t == TrueFalse
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	Order      int    `json:"order"`
}

type Question struct {
	ID      string       `json:"id"`
	QuizID  string       `json:"quizId"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Order   int          `json:"order"`
	Options []Option     `json:"options"`
}

type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	PassingScore int        `json:"passingScore"`
	TimeLimit    *int       `json:"timeLimit,omitempty"` // minutes
	IsActive     bool       `json:"isActive"`
	CreatorID    string     `json:"creatorId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Questions    []Question `json:"questions,omitempty"`
}

// Summary is a list row: quiz header plus counts, no question tree.
type Summary struct {
	Quiz
	QuestionCount int `json:"questionCount"`
	AttemptCount  int `json:"attemptCount"`
}

// AnswerSubmission is one caller-provided answer. Built once at the boundary.
type AnswerSubmission struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type GradedAnswer struct {
	ID                string   `json:"id"`
	AttemptID         string   `json:"attemptId"`
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
	IsCorrect         bool     `json:"isCorrect"`
}

type Attempt struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	QuizID      string         `json:"quizId"`
	Score       int            `json:"score"`
	Passed      bool           `json:"passed"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	TimeSpent   *int           `json:"timeSpent,omitempty"` // seconds
	Answers     []GradedAnswer `json:"answers,omitempty"`
}

// Patch carries the editable quiz metadata; nil fields are left untouched.
type Patch struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	PassingScore *int    `json:"passingScore,omitempty"`
	TimeLimit    *int    `json:"timeLimit,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

type ListOpts struct {
	CreatorID  string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Clone returns a deep copy so stores never hand out shared slices.
func (q Quiz) Clone() Quiz {
	out := q
	if q.TimeLimit != nil {
		v := *q.TimeLimit
		out.TimeLimit = &v
	}
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, qs := range q.Questions {
			out.Questions[i] = qs
			out.Questions[i].Options = append([]Option(nil), qs.Options...)
		}
	}
	return out
}

func (a Attempt) Clone() Attempt {
	out := a
	if a.CompletedAt != nil {
		v := *a.CompletedAt
		out.CompletedAt = &v
	}
	if a.TimeSpent != nil {
		v := *a.TimeSpent
		out.TimeSpent = &v
	}
	if a.Answers != nil {
		out.Answers = make([]GradedAnswer, len(a.Answers))
		for i, ga := range a.Answers {
			out.Answers[i] = ga
			out.Answers[i].SelectedOptionIDs = append([]string{}, ga.SelectedOptionIDs...)
		}
	}
	return out
}
