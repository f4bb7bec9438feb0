// Package users stores accounts and checks passwords with bcrypt.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo struct {
	db   *sql.DB
	cost int
	now  func() time.Time
}

// NewRepo uses bcrypt cost 12 when cost is 0.
func NewRepo(conn *sql.DB, cost int) *Repo {
	if cost == 0 {
		cost = 12
	}
	return &Repo{db: conn, cost: cost, now: time.Now}
}

func ValidRole(role string) bool { return role == RoleAdmin || role == RoleStudent }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates an account. Role defaults to student.
func (r *Repo) Register(ctx context.Context, email, name, password, role string) (User, error) {
	u := User{ID: uuid.NewString(), Email: normalizeEmail(email), Name: strings.TrimSpace(name), Role: role}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	if err := validate(u, password); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = r.now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id,email,name,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.Name, string(hash), u.Role, u.CreatedAt.UnixMilli())
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func validate(u User, password string) error {
	switch {
	case u.Email == "" || !strings.Contains(u.Email, "@"):
		return &quiz.ValidationError{Field: "email", Reason: "a valid email is required"}
	case u.Name == "":
		return &quiz.ValidationError{Field: "name", Reason: "required"}
	case len(password) < 6:
		return &quiz.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	case !ValidRole(u.Role):
		return &quiz.ValidationError{Field: "role", Reason: "invalid role " + u.Role}
	}
	return nil
}

// EnsureUser returns the account with email, creating it if missing.
// Used for seeding; an existing password is left alone.
func (r *Repo) EnsureUser(ctx context.Context, email, name, password, role string) (User, error) {
	u, err := r.byEmail(ctx, normalizeEmail(email))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, quiz.ErrNotFound) {
		return User{}, err
	}
	return r.Register(ctx, email, name, password, role)
}

// Authenticate checks email and password. Unknown email and wrong password
// both give ErrInvalidCredentials.
func (r *Repo) Authenticate(ctx context.Context, email, password string) (User, error) {
	var u User
	var hash string
	var created int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id,email,name,role,created_at,password_hash FROM users WHERE email=$1`, normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &created, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	return r.scanOne(ctx, `WHERE id=$1`, id)
}

func (r *Repo) byEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(ctx, `WHERE email=$1`, email)
}

func (r *Repo) scanOne(ctx context.Context, where string, arg any) (User, error) {
	var u User
	var created int64
	err := r.db.QueryRowContext(ctx, `SELECT id,email,name,role,created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, quiz.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

// List returns users ordered by email, optionally only one role.
func (r *Repo) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id,email,name,role,created_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY email`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		var created int64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

// ChangePassword requires the current password.
func (r *Repo) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return &quiz.ValidationError{Field: "newPassword", Reason: "must be at least 6 characters"}
	}
	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.ErrNotFound
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.cost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

// Row is one entry of a bulk import.
type Row struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`               // default student
	Password string `json:"password,omitempty"` // required for new users
}

// BulkUpsert creates or updates users by email in one transaction. Existing
// users keep their password unless the row carries one.
func (r *Repo) BulkUpsert(ctx context.Context, rows []Row) (inserted, updated int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := r.now().UTC().UnixMilli()
	for i, row := range rows {
		u := User{Email: normalizeEmail(row.Email), Name: strings.TrimSpace(row.Name), Role: strings.ToLower(row.Role)}
		if u.Role == "" {
			u.Role = RoleStudent
		}
		if u.Name == "" {
			u.Name = u.Email
		}
		if !ValidRole(u.Role) {
			return inserted, updated, &quiz.ValidationError{Field: fmt.Sprintf("rows[%d].role", i), Reason: "invalid role " + u.Role}
		}

		var hash string
		if row.Password != "" {
			b, e := bcrypt.GenerateFromPassword([]byte(row.Password), r.cost)
			if e != nil {
				return inserted, updated, e
			}
			hash = string(b)
		}

		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email=$1`, u.Email).Scan(&id)
		switch {
		case err == nil:
			if hash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1, role=$2, password_hash=$3 WHERE id=$4`,
					u.Name, u.Role, hash, id)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1, role=$2 WHERE id=$3`, u.Name, u.Role, id)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if err = validate(u, row.Password); err != nil {
				return inserted, updated, err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (id,email,name,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.NewString(), u.Email, u.Name, hash, u.Role, now)
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}
