package auth

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultTokenExpiry = time.Hour
	DefaultBcryptCost  = 10
)

// Config carries the token and hashing knobs. It is read once at start-up and
// handed to constructors; nothing in this package reads the environment later.
type Config struct {
	Secret     string
	Issuer     string
	Expiry     time.Duration
	Leeway     time.Duration
	BcryptCost int
}

// ConfigFromEnv reads JWT_SECRET, JWT_ISSUER, JWT_EXPIRY, JWT_LEEWAY and BCRYPT_COST.
// A missing secret is left empty; NewTokenManager rejects it.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret:     os.Getenv("JWT_SECRET"),
		Issuer:     os.Getenv("JWT_ISSUER"),
		Expiry:     DefaultTokenExpiry,
		BcryptCost: DefaultBcryptCost,
	}
	if d, err := time.ParseDuration(os.Getenv("JWT_EXPIRY")); err == nil && d > 0 {
		cfg.Expiry = d
	}
	if d, err := time.ParseDuration(os.Getenv("JWT_LEEWAY")); err == nil && d >= 0 {
		cfg.Leeway = d
	}
	if c, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil {
		cfg.BcryptCost = c
	}
	return cfg
}
