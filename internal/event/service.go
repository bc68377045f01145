package event

import (
	"context"
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/event/entity"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/event/repo"
)

// Store is the persistence contract for events.
type Store interface {
	Create(ctx context.Context, e *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Event, error)
	Update(ctx context.Context, e *entity.Event) (int64, error)
	Delete(ctx context.Context, id string, ownerID int64) (int64, error)
}

// IDGenerator hands out new event ids.
type IDGenerator interface {
	Next() string
}

// sentinel errors for common failure modes
var (
	ErrNotFound  = repo.ErrNotFound
	ErrForbidden = errors.New("event belongs to another account")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Input holds the caller-supplied event fields. ImageUploaded is set when
// Image was just stored by the upload store rather than named by the client.
type Input struct {
	Title         string
	Description   string
	Address       string
	Date          time.Time
	Image         *string
	ImageUploaded bool
}

// Service encapsulates business logic for events and depends on a Store.
type Service struct {
	store Store
	ids   IDGenerator
	now   func() time.Time
}

func NewService(store Store, ids IDGenerator) *Service {
	return &Service{store: store, ids: ids, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new event owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (*entity.Event, error) {
	now := s.now()
	e := &entity.Event{
		ID:          s.ids.Next(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Date:        in.Date.UTC(),
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.ImageUploaded = in.Image != nil && in.ImageUploaded
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an event by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Event, error) {
	return s.store.GetByID(ctx, id)
}

// List returns events with pagination; limit is clamped to MaxListLimit.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*entity.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Update replaces the fields of an event owned by ownerID. A nil in.Image, or
// one equal to the current image, keeps the current image and its upload
// marker. The previous event is returned alongside the new one.
func (s *Service) Update(ctx context.Context, ownerID int64, id string, in Input) (updated, previous *entity.Event, err error) {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	e := *existing
	e.Title = in.Title
	e.Description = in.Description
	e.Address = in.Address
	e.Date = in.Date.UTC()
	if in.Image != nil && (existing.Image == nil || *in.Image != *existing.Image) {
		e.Image = in.Image
		e.ImageUploaded = in.ImageUploaded
	}
	e.UpdatedAt = s.now()

	rows, err := s.store.Update(ctx, &e)
	if err != nil {
		return nil, nil, err
	}
	if rows == 0 {
		// removed between the ownership check and the update
		return nil, nil, ErrNotFound
	}
	return &e, existing, nil
}

// Delete removes an event owned by ownerID and returns what was removed.
func (s *Service) Delete(ctx context.Context, ownerID int64, id string) (*entity.Event, error) {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return existing, nil
}

func (s *Service) owned(ctx context.Context, ownerID int64, id string) (*entity.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return e, nil
}
