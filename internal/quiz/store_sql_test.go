package quiz_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/ledger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "quiz.db") + "?_pragma=busy_timeout(5000)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func userAdder(conn *sql.DB) func(t *testing.T, id string) {
	return func(t *testing.T, id string) {
		t.Helper()
		_, err := conn.Exec(`INSERT INTO users (id,email,name,password_hash,role,created_at)
			VALUES ($1,$2,$3,'x','student',$4)`, id, id+"@example.test", id, time.Now().UnixMilli())
		require.NoError(t, err)
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	runStoreContract(t, func(t *testing.T) harness {
		conn := openSQLite(t)
		return harness{store: quiz.NewSQLStore(conn, nil), addUser: userAdder(conn)}
	})
}

// Set QUIZ_PG_DSN to a scratch database to run the contract against Postgres.
func TestSQLStore_Postgres(t *testing.T) {
	dsn := os.Getenv("QUIZ_PG_DSN")
	if dsn == "" {
		t.Skip("QUIZ_PG_DSN not set")
	}
	conn, err := db.Open(context.Background(), db.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	runStoreContract(t, func(t *testing.T) harness {
		return harness{store: quiz.NewSQLStore(conn, nil), addUser: userAdder(conn)}
	})
}

func TestSQLStore_AttemptWritesEvent(t *testing.T) {
	conn := openSQLite(t)
	events := syncx.NewEventRepo(conn, "site-a")
	s := quiz.NewSQLStore(conn, events)
	add := userAdder(conn)
	ctx := context.Background()
	id := newIDs()
	add(t, id.of("admin"))
	add(t, id.of("student"))

	q, err := s.CreateQuiz(ctx, draft(id.of("admin"), id))
	require.NoError(t, err)
	a, err := s.CreateAttempt(ctx, attemptFor(id.of("student"), q.ID, 100, time.Now(), id))
	require.NoError(t, err)

	list, err := events.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	ev := list[0]
	assert.Equal(t, syncx.TypeAttemptSubmitted, ev.Type)
	assert.Equal(t, a.ID, ev.Key)
	assert.Equal(t, "site-a", ev.SiteID)

	var payload struct {
		UserID string `json:"userId"`
		QuizID string `json:"quizId"`
		Score  int    `json:"score"`
		Passed bool   `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, id.of("student"), payload.UserID)
	assert.Equal(t, q.ID, payload.QuizID)
	assert.Equal(t, 100, payload.Score)
	assert.True(t, payload.Passed)

	// A rejected duplicate leaves neither a row nor an event behind.
	_, err = s.CreateAttempt(ctx, attemptFor(id.of("student"), q.ID, 0, time.Now(), id))
	require.ErrorIs(t, err, quiz.ErrAlreadyCompleted)
	list, err = events.Since(ctx, ev.Offset, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLStore_FailedAttemptRollsBack(t *testing.T) {
	conn := openSQLite(t)
	s := quiz.NewSQLStore(conn, nil)
	add := userAdder(conn)
	ctx := context.Background()
	id := newIDs()
	add(t, id.of("admin"))
	add(t, id.of("student"))
	q, err := s.CreateQuiz(ctx, draft(id.of("admin"), id))
	require.NoError(t, err)

	// The second answer points at a question that does not exist, so the
	// insert fails halfway through.
	bad := attemptFor(id.of("student"), q.ID, 100, time.Now(), id)
	bad.Answers[1].QuestionID = "ghost"
	_, err = s.CreateAttempt(ctx, bad)
	require.Error(t, err)
	assert.False(t, errors.Is(err, quiz.ErrAlreadyCompleted))

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM attempt_answers`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&n))
	assert.Zero(t, n)

	found, err := s.FindCompletedAttempt(ctx, id.of("student"), q.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLStore_ConcurrentSubmitSingleWinner(t *testing.T) {
	conn := openSQLite(t)
	s := quiz.NewSQLStore(conn, nil)
	add := userAdder(conn)
	ctx := context.Background()
	id := newIDs()
	add(t, id.of("admin"))
	add(t, id.of("student"))
	q, err := s.CreateQuiz(ctx, draft(id.of("admin"), id))
	require.NoError(t, err)

	l := ledger.New(s)
	answers := []quiz.AnswerSubmission{{QuestionID: id.of("q1"), SelectedOptionIDs: []string{id.of("q1-a")}}}

	const n = 8
	results := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = l.Submit(ctx, id.of("student"), q.ID, answers, nil)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, quiz.ErrAlreadyCompleted)
	}
	assert.Equal(t, 1, wins)

	list, err := s.ListAttemptsByUser(ctx, id.of("student"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 50, list[0].Score)
}
