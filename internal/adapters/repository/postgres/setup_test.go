package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(user),
		tcpostgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

// setupDB starts a fresh database with the schema applied. The container is
// terminated when the test ends.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, ApplyMigrations(ctx, db))
	return db
}

func newPoll(title string, createdAt time.Time, options ...string) *domain.Poll {
	p := &domain.Poll{
		ID:        uuid.New(),
		Title:     title,
		Tags:      []string{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	for i, text := range options {
		p.Options = append(p.Options, domain.PollOption{
			ID: uuid.New(), PollID: p.ID, Text: text, Position: i, CreatedAt: createdAt,
		})
	}
	return p
}

func newVote(p *domain.Poll, option int, identity string) *domain.Vote {
	return &domain.Vote{
		ID:            uuid.New(),
		PollID:        p.ID,
		OptionID:      p.Options[option].ID,
		VoterIdentity: identity,
		CreatedAt:     time.Now().UTC(),
	}
}
