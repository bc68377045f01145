package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/account/entity"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// postgres unique_violation
const uniqueViolation = "23505"

// AccountRepo provides data access for the users table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// The UNIQUE constraint on email is what makes concurrent signups safe.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CreateAccount inserts a new account and returns it with its assigned id.
func (r *AccountRepo) CreateAccount(ctx context.Context, email, username, passwordHash string) (*entity.Account, error) {
	const q = `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`
	a := &entity.Account{Username: username, Email: email, PasswordHash: passwordHash}
	if err := r.db.QueryRowxContext(ctx, q, username, email, passwordHash).Scan(&a.ID, &a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// FindByEmail returns the account with the exact email or ErrNotFound.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE email=$1`
	return r.get(ctx, q, email)
}

// FindByID returns the account with the given id or ErrNotFound.
func (r *AccountRepo) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE id=$1`
	return r.get(ctx, q, id)
}

func (r *AccountRepo) get(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
