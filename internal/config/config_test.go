package config

import (
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "POSTGRES_HOST", "POSTGRES_PORT", "BUS_BUFFER", "ALLOWED_ORIGINS", "LOG_LEVEL", "COOKIE_SECURE"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, 64, cfg.BusBuffer)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.CookieSecure)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_USER", "poll")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_DB", "polls")
	t.Setenv("POSTGRES_SSLMODE", "")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org ,")
	t.Setenv("BUS_BUFFER", "8")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres://poll:secret@db:6543/polls?sslmode=disable", cfg.DB.ConnString())
	assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, 8, cfg.BusBuffer)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("BUS_BUFFER", "lots")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "BUS_BUFFER")
}

func TestConnStringEscapesCredentials(t *testing.T) {
	db := DBConfig{
		Host:     "db",
		Port:     "5432",
		User:     "poll admin",
		Password: "p@ss/w:rd?#",
		Name:     "polls",
		SSLMode:  "disable",
	}

	parsed, err := url.Parse(db.ConnString())
	require.NoError(t, err)
	assert.Equal(t, "db:5432", parsed.Host)
	assert.Equal(t, "/polls", parsed.Path)
	assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	assert.Equal(t, "poll admin", parsed.User.Username())

	password, ok := parsed.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?#", password)
}
