package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/event/entity"
)

// MemoryRepo keeps events in a map. Used by tests and local runs without postgres.
type MemoryRepo struct {
	mu     sync.RWMutex
	events map[string]entity.Event
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{events: map[string]entity.Event{}}
}

func (r *MemoryRepo) Create(_ context.Context, e *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = *e
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*entity.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]*entity.Event, error) {
	r.mu.RLock()
	all := make([]*entity.Event, 0, len(r.events))
	for _, e := range r.events {
		e := e
		all = append(all, &e)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].ID < all[j].ID
		}
		return all[i].Date.Before(all[j].Date)
	})
	if offset >= len(all) {
		return []*entity.Event{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) Update(_ context.Context, e *entity.Event) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.events[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return 0, nil
	}
	e.CreatedAt = cur.CreatedAt
	r.events[e.ID] = *e
	return 1, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.events[id]
	if !ok || cur.OwnerID != ownerID {
		return 0, nil
	}
	delete(r.events, id)
	return 1, nil
}
