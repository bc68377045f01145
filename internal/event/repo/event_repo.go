package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/event/entity"
)

var ErrNotFound = errors.New("event not found")

// Repo is the repository implementation for events backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

// NewRepo constructs a new Repo with an existing connection.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// EnsureTable ensures the events table and its owner index exist.
func (r *Repo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS events (
		id varchar(32) PRIMARY KEY,
		owner_id BIGINT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		address TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		image TEXT,
		image_uploaded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `CREATE INDEX IF NOT EXISTS idx_events_owner_id ON events (owner_id);`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}
	return nil
}

const columns = `id, owner_id, title, description, address, date, image, image_uploaded, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, e *entity.Event) error {
	const q = `INSERT INTO events (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.OwnerID, e.Title, e.Description, e.Address, e.Date, e.Image, e.ImageUploaded, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	const q = `SELECT ` + columns + ` FROM events WHERE id=$1`
	var e entity.Event
	if err := r.db.GetContext(ctx, &e, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &e, nil
}

// List returns events ordered by date with pagination.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]*entity.Event, error) {
	const q = `SELECT ` + columns + ` FROM events ORDER BY date, id LIMIT $1 OFFSET $2`
	out := []*entity.Event{}
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update overwrites the mutable fields of an event owned by e.OwnerID and
// returns the number of affected rows.
func (r *Repo) Update(ctx context.Context, e *entity.Event) (int64, error) {
	const q = `UPDATE events SET title=$3, description=$4, address=$5, date=$6, image=$7, image_uploaded=$8, updated_at=$9
		WHERE id=$1 AND owner_id=$2`
	res, err := r.db.ExecContext(ctx, q, e.ID, e.OwnerID, e.Title, e.Description, e.Address, e.Date, e.Image, e.ImageUploaded, e.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes an event owned by ownerID and returns the number of affected rows.
func (r *Repo) Delete(ctx context.Context, id string, ownerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
