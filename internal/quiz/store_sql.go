package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore works over either driver opened by db.Open; queries use $n
// placeholders, which both pgx and modernc sqlite accept.
func NewSQLStore(conn *sql.DB, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo(conn, "")
	}
	return &SQLStore{db: conn, events: events, now: time.Now}
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	if err := ValidateDraft(q); err != nil {
		return Quiz{}, err
	}
	q = prepareNew(q, s.now().UTC())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quizzes (id,title,description,passing_score,time_limit,is_active,creator_id,created_at,updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			q.ID, q.Title, q.Description, q.PassingScore, nullInt(q.TimeLimit), q.IsActive, q.CreatorID,
			q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli()); err != nil {
			return err
		}
		for _, qs := range q.Questions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO questions (id,quiz_id,type,text,position) VALUES ($1,$2,$3,$4,$5)`,
				qs.ID, q.ID, string(qs.Type), qs.Text, qs.Order); err != nil {
				return err
			}
			for _, o := range qs.Options {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO options (id,question_id,text,is_correct,position) VALUES ($1,$2,$3,$4,$5)`,
					o.ID, qs.ID, o.Text, o.IsCorrect, o.Order); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if db.IsUniqueViolation(err) {
		return Quiz{}, &ValidationError{Field: "id", Reason: "already in use"}
	}
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) GetQuizWithQuestions(ctx context.Context, id string) (Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, quizSelect+` WHERE id=$1`, id))
	if err != nil {
		return Quiz{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id,quiz_id,type,text,position FROM questions WHERE quiz_id=$1 ORDER BY position, id`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer rows.Close()
	index := map[string]int{}
	for rows.Next() {
		var qs Question
		var typ string
		if err := rows.Scan(&qs.ID, &qs.QuizID, &typ, &qs.Text, &qs.Order); err != nil {
			return Quiz{}, err
		}
		qs.Type = QuestionType(typ)
		qs.Options = []Option{}
		index[qs.ID] = len(q.Questions)
		q.Questions = append(q.Questions, qs)
	}
	if err := rows.Err(); err != nil {
		return Quiz{}, err
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT o.id,o.question_id,o.text,o.is_correct,o.position
		   FROM options o JOIN questions q ON q.id = o.question_id
		  WHERE q.quiz_id=$1 ORDER BY q.position, o.position, o.id`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer orows.Close()
	for orows.Next() {
		var o Option
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.Order); err != nil {
			return Quiz{}, err
		}
		if i, ok := index[o.QuestionID]; ok {
			q.Questions[i].Options = append(q.Questions[i].Options, o)
		}
	}
	return q, orows.Err()
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, id string, p Patch) (Quiz, error) {
	if err := ValidatePatch(p); err != nil {
		return Quiz{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		q, err := scanQuiz(tx.QueryRowContext(ctx, quizSelect+` WHERE id=$1`, id))
		if err != nil {
			return err
		}
		p.apply(&q, s.now().UTC())
		_, err = tx.ExecContext(ctx,
			`UPDATE quizzes SET title=$1, description=$2, passing_score=$3, time_limit=$4, is_active=$5, updated_at=$6
			 WHERE id=$7`,
			q.Title, q.Description, q.PassingScore, nullInt(q.TimeLimit), q.IsActive, q.UpdatedAt.UnixMilli(), id)
		return err
	})
	if err != nil {
		return Quiz{}, err
	}
	return s.GetQuizWithQuestions(ctx, id)
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if opts.CreatorID != "" {
		where = append(where, "creator_id="+arg(opts.CreatorID))
	}
	if opts.ActiveOnly {
		where = append(where, "is_active="+arg(true))
	}
	query := `SELECT id,title,description,passing_score,time_limit,is_active,creator_id,created_at,updated_at,
	        (SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = quizzes.id),
	        (SELECT COUNT(*) FROM attempts a WHERE a.quiz_id = quizzes.id)
	   FROM quizzes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit) + " OFFSET " + arg(opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		var limit sql.NullInt64
		var created, updated int64
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Description, &sm.PassingScore, &limit, &sm.IsActive,
			&sm.CreatorID, &created, &updated, &sm.QuestionCount, &sm.AttemptCount); err != nil {
			return nil, err
		}
		sm.TimeLimit = intPtr(limit)
		sm.CreatedAt, sm.UpdatedAt = fromMillis(created), fromMillis(updated)
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLStore) FindCompletedAttempt(ctx context.Context, userID, quizID string) (*Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		attemptSelect+` WHERE user_id=$1 AND quiz_id=$2 AND completed_at IS NOT NULL`, userID, quizID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAttempt writes the attempt, its answers and an AttemptSubmitted event
// in one transaction. The partial unique index on (user_id, quiz_id) rejects
// a second completed attempt even when two submissions race.
func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a = prepareAttempt(a)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var completed any
		if a.CompletedAt != nil {
			completed = a.CompletedAt.UnixMilli()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (id,user_id,quiz_id,score,passed,started_at,completed_at,time_spent)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			a.ID, a.UserID, a.QuizID, a.Score, a.Passed, a.StartedAt.UnixMilli(), completed, nullInt(a.TimeSpent)); err != nil {
			return err
		}
		for i, ga := range a.Answers {
			sel, err := json.Marshal(ga.SelectedOptionIDs)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attempt_answers (id,attempt_id,question_id,selected_option_ids,is_correct,position)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				ga.ID, a.ID, ga.QuestionID, string(sel), ga.IsCorrect, i+1); err != nil {
				return err
			}
		}
		return s.events.Append(ctx, tx, syncx.TypeAttemptSubmitted, a.ID, map[string]any{
			"userId": a.UserID,
			"quizId": a.QuizID,
			"score":  a.Score,
			"passed": a.Passed,
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Attempt{}, ErrAlreadyCompleted
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, attemptSelect+` WHERE id=$1`, id))
	if err != nil {
		return Attempt{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,attempt_id,question_id,selected_option_ids,is_correct
		   FROM attempt_answers WHERE attempt_id=$1 ORDER BY position`, id)
	if err != nil {
		return Attempt{}, err
	}
	defer rows.Close()
	a.Answers = []GradedAnswer{}
	for rows.Next() {
		var ga GradedAnswer
		var sel string
		if err := rows.Scan(&ga.ID, &ga.AttemptID, &ga.QuestionID, &sel, &ga.IsCorrect); err != nil {
			return Attempt{}, err
		}
		if err := json.Unmarshal([]byte(sel), &ga.SelectedOptionIDs); err != nil {
			return Attempt{}, fmt.Errorf("decode selected options of answer %s: %w", ga.ID, err)
		}
		if ga.SelectedOptionIDs == nil {
			ga.SelectedOptionIDs = []string{}
		}
		a.Answers = append(a.Answers, ga)
	}
	return a, rows.Err()
}

func (s *SQLStore) ListAttemptsByQuiz(ctx context.Context, quizID string) ([]Attempt, error) {
	return s.listAttempts(ctx, `quiz_id=$1`, quizID)
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error) {
	return s.listAttempts(ctx, `user_id=$1`, userID)
}

func (s *SQLStore) listAttempts(ctx context.Context, cond string, arg any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		attemptSelect+` WHERE `+cond+` ORDER BY COALESCE(completed_at, started_at) DESC, id DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// ---- row helpers ----

const quizSelect = `SELECT id,title,description,passing_score,time_limit,is_active,creator_id,created_at,updated_at FROM quizzes`

const attemptSelect = `SELECT id,user_id,quiz_id,score,passed,started_at,completed_at,time_spent FROM attempts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var limit sql.NullInt64
	var created, updated int64
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &q.PassingScore, &limit, &q.IsActive,
		&q.CreatorID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	q.TimeLimit = intPtr(limit)
	q.CreatedAt, q.UpdatedAt = fromMillis(created), fromMillis(updated)
	return q, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var started int64
	var completed, spent sql.NullInt64
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.Passed, &started, &completed, &spent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	a.StartedAt = fromMillis(started)
	if completed.Valid {
		t := fromMillis(completed.Int64)
		a.CompletedAt = &t
	}
	a.TimeSpent = intPtr(spent)
	return a, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
