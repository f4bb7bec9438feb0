package quiz

import "context"

// AttemptStore is everything the attempt ledger needs from persistence.
type AttemptStore interface {
	// GetQuizWithQuestions returns the quiz with its full question/option tree,
	// active or not. ErrNotFound when absent.
	GetQuizWithQuestions(ctx context.Context, id string) (Quiz, error)
	// FindCompletedAttempt returns nil, nil when the user has no completed attempt.
	FindCompletedAttempt(ctx context.Context, userID, quizID string) (*Attempt, error)
	// CreateAttempt persists the attempt and its answers as one unit. A second
	// completed attempt for the same (user, quiz) fails with ErrAlreadyCompleted.
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// ListAttemptsByQuiz and ListAttemptsByUser order by completion time, newest first.
	ListAttemptsByQuiz(ctx context.Context, quizID string) ([]Attempt, error)
	ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error)
}

type QuizStore interface {
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	UpdateQuiz(ctx context.Context, id string, p Patch) (Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error)
}

type Store interface {
	AttemptStore
	QuizStore
}
