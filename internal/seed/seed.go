// Package seed loads demo accounts and quizzes for offline installs.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

const (
	StudentEmail    = "student@example.com"
	StudentPassword = "password123"
)

type Accounts interface {
	EnsureUser(ctx context.Context, email, name, password, role string) (users.User, error)
}

// Demo makes sure an admin and a student exist and that the admin owns the
// sample quizzes. Running it twice changes nothing.
func Demo(ctx context.Context, store quiz.Store, accts Accounts, adminEmail, adminPassword string, log *zap.Logger) error {
	admin, err := accts.EnsureUser(ctx, adminEmail, "Admin User", adminPassword, users.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if _, err := accts.EnsureUser(ctx, StudentEmail, "Student User", StudentPassword, users.RoleStudent); err != nil {
		return fmt.Errorf("seed student: %w", err)
	}

	have, err := store.ListQuizzes(ctx, quiz.ListOpts{CreatorID: admin.ID})
	if err != nil {
		return fmt.Errorf("seed list: %w", err)
	}
	titles := make(map[string]bool, len(have))
	for _, s := range have {
		titles[s.Title] = true
	}
	for _, q := range Quizzes() {
		if titles[q.Title] {
			continue
		}
		q.CreatorID = admin.ID
		created, err := store.CreateQuiz(ctx, q)
		if err != nil {
			return fmt.Errorf("seed quiz %q: %w", q.Title, err)
		}
		log.Info("seeded quiz", zap.String("quiz_id", created.ID), zap.String("title", created.Title))
	}
	return nil
}

func intp(n int) *int { return &n }

func mc(text string, correct int, opts ...string) quiz.Question {
	q := quiz.Question{Type: quiz.MultipleChoice, Text: text}
	for i, o := range opts {
		q.Options = append(q.Options, quiz.Option{Text: o, IsCorrect: i == correct})
	}
	return q
}

func tf(text string, answer bool) quiz.Question {
	return quiz.Question{Type: quiz.TrueFalse, Text: text, Options: []quiz.Option{
		{Text: "True", IsCorrect: answer},
		{Text: "False", IsCorrect: !answer},
	}}
}

// Quizzes returns fresh drafts of the sample quizzes, without a creator.
func Quizzes() []quiz.Quiz {
	return []quiz.Quiz{
		{
			Title:        "JavaScript Fundamentals",
			Description:  "Test your knowledge of JavaScript basics including variables, functions, and data types.",
			PassingScore: 70,
			TimeLimit:    intp(30),
			IsActive:     true,
			Questions: []quiz.Question{
				mc("What is the correct way to declare a variable in JavaScript?", 0,
					"var myVar = 5;", "variable myVar = 5;", "v myVar = 5;", "declare myVar = 5;"),
				mc("Which of the following is NOT a JavaScript data type?", 2,
					"String", "Boolean", "Float", "Number"),
				tf("JavaScript is a case-sensitive language.", true),
				mc(`What does the "===" operator do in JavaScript?`, 1,
					"Assigns a value", "Compares values and types", "Compares only values", "Checks if a variable exists"),
				tf(`Functions in JavaScript can be declared using the "function" keyword.`, true),
			},
		},
		{
			Title:        "React Basics",
			Description:  "Test your understanding of React fundamentals including components, props, and state.",
			PassingScore: 60,
			TimeLimit:    intp(20),
			IsActive:     true,
			Questions: []quiz.Question{
				mc("What is React?", 0,
					"A JavaScript library for building user interfaces", "A programming language", "A database", "A CSS framework"),
				tf("React components must return JSX.", false),
				mc("What is the purpose of props in React?", 1,
					"To store component state", "To pass data to components", "To handle events", "To style components"),
			},
		},
	}
}
