package database

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/events")
	t.Setenv("DATABASE_MAX_CONNS", "12")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db:5432/events", cfg.DSN)
	assert.Equal(t, 12, cfg.MaxConns)

	t.Setenv("DATABASE_MAX_CONNS", "nope")
	assert.Equal(t, 5, ConfigFromEnv().MaxConns)
}

func TestSessionDSNURL(t *testing.T) {
	dsn, err := sessionDSN(Config{
		DSN:            "postgres://u:p@db:5432/events?sslmode=disable",
		TimeZone:       "Europe/Riga",
		ClientEncoding: "utf-8",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/events?client_encoding=UTF8&sslmode=disable&timezone=Europe%2FRiga", dsn)

	kv, err := pq.ParseURL(dsn)
	require.NoError(t, err)
	assert.Contains(t, kv, "timezone=Europe/Riga")
	assert.Contains(t, kv, "client_encoding=UTF8")

	_, err = pq.NewConnector(dsn)
	assert.NoError(t, err)
}

func TestSessionDSNKeyValue(t *testing.T) {
	dsn, err := sessionDSN(Config{DSN: "host=db dbname=events", TimeZone: "it's"})
	require.NoError(t, err)
	assert.Equal(t, `host=db dbname=events timezone='it\'s'`, dsn)

	_, err = pq.NewConnector(dsn)
	assert.NoError(t, err)
}

func TestSessionDSNUnchanged(t *testing.T) {
	dsn, err := sessionDSN(Config{DSN: "postgres://u:p@db/events"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/events", dsn)
}

func TestSessionDSNRejectsNonUTF8(t *testing.T) {
	_, err := sessionDSN(Config{DSN: "postgres://u:p@db/events", ClientEncoding: "LATIN1"})
	assert.ErrorContains(t, err, "only UTF8")

	_, err = Connect(Config{DSN: "postgres://u:p@db/events", ClientEncoding: "LATIN1"})
	assert.Error(t, err)
}
