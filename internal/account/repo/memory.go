package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/account/entity"
)

// MemoryRepo is an in-process account store for tests and local runs.
// The email check and the insert share one critical section.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]entity.Account
	byEmail map[string]int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[int64]entity.Account{}, byEmail: map[string]int64{}}
}

func (r *MemoryRepo) CreateAccount(ctx context.Context, email, username, passwordHash string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}
	r.nextID++
	a := entity.Account{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[a.ID] = a
	r.byEmail[email] = a.ID
	return &a, nil
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	a := r.byID[id]
	return &a, nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}
