package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")

	// Verification failure reasons. The HTTP layer collapses them into a
	// single response; they stay distinct for logs and tests.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenClaims    = errors.New("token claims invalid")
)

// Claims is the signed payload. userId matches what existing clients decode.
type Claims struct {
	AccountID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens. It is immutable after
// construction and safe for concurrent use.
type TokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
	leeway time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewTokenManager(cfg Config, opts ...TokenOption) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	m := &TokenManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expiry: expiry,
		leeway: cfg.Leeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Expiry returns the lifetime given to new tokens.
func (m *TokenManager) Expiry() time.Duration { return m.expiry }

// Issue signs a token for accountID valid until now+expiry.
func (m *TokenManager) Issue(accountID int64) (string, error) {
	now := m.now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the account id in the token.
// It never touches storage.
func (m *TokenManager) Verify(token string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.leeway))
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && m.signatureMismatch(token) {
			return 0, fmt.Errorf("%w: %v", ErrTokenSignature, err)
		}
		return 0, classify(err)
	}
	if claims.AccountID <= 0 {
		return 0, ErrTokenClaims
	}
	return claims.AccountID, nil
}

// signatureMismatch reports whether token is shaped like an HS256 token whose
// signature does not cover its first two segments. The parser decodes claims
// before checking the signature, so a tampered payload would otherwise surface
// as malformed.
func (m *TokenManager) signatureMismatch(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(sig) != jwt.SigningMethodHS256.Hash.Size() {
		return false
	}
	return jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, m.secret) != nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenClaims, err)
	}
}
