package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
		dsn = withPragma(dsn, "foreign_keys(1)")
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; concurrent writers would otherwise see SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// withPragma appends a modernc _pragma parameter unless the DSN already sets it.
func withPragma(dsn, pragma string) string {
	name := pragma
	if i := strings.IndexByte(pragma, '('); i > 0 {
		name = pragma[:i]
	}
	if strings.Contains(dsn, name) {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  passing_score INTEGER NOT NULL CHECK (passing_score BETWEEN 0 AND 100),
  time_limit INTEGER,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  creator_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quizzes_creator ON quizzes(creator_id, created_at DESC);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  text TEXT NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);

CREATE TABLE IF NOT EXISTS options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL DEFAULT 0,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, position);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
  passed BOOLEAN NOT NULL,
  started_at INTEGER NOT NULL,
  completed_at INTEGER,
  time_spent INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_attempts_completed ON attempts(user_id, quiz_id) WHERE completed_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON attempts(quiz_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS attempt_answers (
  id TEXT PRIMARY KEY,
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  selected_option_ids TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempt_answers_attempt ON attempt_answers(attempt_id, position);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., AttemptSubmitted
  key TEXT NOT NULL,                         -- natural key: attemptID
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  passing_score INTEGER NOT NULL CHECK (passing_score BETWEEN 0 AND 100),
  time_limit INTEGER,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  creator_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quizzes_creator ON quizzes(creator_id, created_at DESC);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  text TEXT NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);

CREATE TABLE IF NOT EXISTS options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL DEFAULT FALSE,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, position);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
  passed BOOLEAN NOT NULL,
  started_at BIGINT NOT NULL,
  completed_at BIGINT,
  time_spent INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_attempts_completed ON attempts(user_id, quiz_id) WHERE completed_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON attempts(quiz_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS attempt_answers (
  id TEXT PRIMARY KEY,
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  selected_option_ids TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempt_answers_attempt ON attempt_answers(attempt_id, position);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
