package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// RecordVote is the unit of work of an admitted vote: the vote row and the
// option counter change together or not at all.
func (r *voteRepository) RecordVote(ctx context.Context, vote *domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO votes (id, poll_id, option_id, voter_identity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, query, vote.ID, vote.PollID, vote.OptionID, vote.VoterIdentity, vote.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrAlreadyVoted
		case isForeignKeyViolation(err):
			return r.missingReference(ctx, vote.PollID)
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE poll_options SET votes_count = votes_count + 1 WHERE id = $1 AND poll_id = $2`,
		vote.OptionID, vote.PollID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment option counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrOptionNotFound
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to commit vote: %w", err)
	}
	return nil
}

// missingReference tells a deleted poll apart from an option that does not
// belong to it after a foreign key violation.
func (r *voteRepository) missingReference(ctx context.Context, pollID uuid.UUID) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM polls WHERE id = $1`, pollID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check poll: %w", err)
	}
	return domain.ErrOptionNotFound
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID uuid.UUID, identity string) (bool, error) {
	query := `SELECT 1 FROM votes WHERE poll_id = $1 AND voter_identity = $2 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, pollID, identity).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return true, nil
}

func (r *voteRepository) GetByIdentity(ctx context.Context, pollID uuid.UUID, identity string) (*domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_identity, created_at
		FROM votes
		WHERE poll_id = $1 AND voter_identity = $2
	`
	var vote domain.Vote
	err := r.db.QueryRowContext(ctx, query, pollID, identity).Scan(
		&vote.ID, &vote.PollID, &vote.OptionID, &vote.VoterIdentity, &vote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &vote, nil
}

func (r *voteRepository) ListVoterIdentities(ctx context.Context, pollID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT voter_identity FROM votes WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voter identities: %w", err)
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("failed to scan voter identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voter identities: %w", err)
	}
	return identities, nil
}

func (r *voteRepository) CountByPoll(ctx context.Context, pollID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE poll_id = $1`, pollID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}
