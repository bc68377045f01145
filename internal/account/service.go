package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/auth"
)

// Store is the credential store consumed by signup and login.
type Store interface {
	CreateAccount(ctx context.Context, email, username, passwordHash string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id int64) (*entity.Account, error)
}

// TokenIssuer turns an authenticated account id into a bearer token.
type TokenIssuer interface {
	Issue(accountID int64) (string, error)
}

var (
	ErrNotFound           = repo.ErrNotFound
	ErrDuplicateEmail     = repo.ErrDuplicateEmail
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service orchestrates signup, login and profile lookup.
type Service struct {
	store  Store
	hasher auth.PasswordHasher
	tokens TokenIssuer

	// dummyHash is compared against on unknown emails so both login
	// failure paths cost one hash verification.
	dummyOnce sync.Once
	dummyHash string
}

func NewService(store Store, hasher auth.PasswordHasher, tokens TokenIssuer) *Service {
	if hasher == nil {
		hasher = auth.NewBcryptHasher(auth.DefaultBcryptCost)
	}
	return &Service{store: store, hasher: hasher, tokens: tokens}
}

// Signup hashes the password and stores a new account.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*entity.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateAccount(ctx, email, username, hash)
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *entity.Account, error) {
	a, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.hasher.Verify(s.dummy(), password)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(a.ID)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

// Profile returns the account with the given id.
func (s *Service) Profile(ctx context.Context, id int64) (*entity.Account, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}
