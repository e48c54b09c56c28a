package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type PollResultRepository interface {
	// CountVotesByPolls groups vote rows by (poll, option) for all given
	// polls in a single query.
	CountVotesByPolls(ctx context.Context, pollIDs []uuid.UUID) ([]domain.VoteCount, error)
	TallyDrift(ctx context.Context, pollID uuid.UUID) ([]domain.TallyDrift, error)
}

type StatsService interface {
	StatsForPoll(ctx context.Context, pollID uuid.UUID) (*domain.PollStats, error)
	StatsForPolls(ctx context.Context, pollIDs []uuid.UUID) (map[uuid.UUID]domain.PollSummary, error)
	StatsForPollListing(ctx context.Context, input ListPollsInput) ([]domain.PollListing, error)
}

type TallyAuditService interface {
	AuditAll(ctx context.Context) ([]domain.TallyDrift, error)
}
