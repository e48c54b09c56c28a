package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type pollResultRepository struct {
	db *sql.DB
}

func NewPollResultRepository(db *sql.DB) ports.PollResultRepository {
	return &pollResultRepository{
		db: db,
	}
}

func (r *pollResultRepository) CountVotesByPolls(ctx context.Context, pollIDs []uuid.UUID) ([]domain.VoteCount, error) {
	if len(pollIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pollIDs))
	for _, id := range pollIDs {
		ids = append(ids, id.String())
	}

	query := `
		SELECT poll_id, option_id, COUNT(*)
		FROM votes
		WHERE poll_id = ANY($1::uuid[])
		GROUP BY poll_id, option_id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vote counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.VoteCount
	for rows.Next() {
		var c domain.VoteCount
		if err := rows.Scan(&c.PollID, &c.OptionID, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote counts: %w", err)
	}
	return counts, nil
}

// TallyDrift reports the options of a poll whose votes_count differs from
// the number of vote rows. It never writes.
func (r *pollResultRepository) TallyDrift(ctx context.Context, pollID uuid.UUID) ([]domain.TallyDrift, error) {
	query := `
		SELECT o.poll_id, o.id, o.votes_count, COUNT(v.id)
		FROM poll_options o
		LEFT JOIN votes v ON v.option_id = o.id AND v.poll_id = o.poll_id
		WHERE o.poll_id = $1
		GROUP BY o.poll_id, o.id, o.votes_count
		HAVING o.votes_count <> COUNT(v.id)
		ORDER BY o.id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to audit poll %s: %w", pollID, err)
	}
	defer rows.Close()

	var drifts []domain.TallyDrift
	for rows.Next() {
		var d domain.TallyDrift
		if err := rows.Scan(&d.PollID, &d.OptionID, &d.CachedCount, &d.RecordedCount); err != nil {
			return nil, fmt.Errorf("failed to scan tally drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally drift: %w", err)
	}
	return drifts, nil
}
