package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type VoteRepository interface {
	HasVoted(ctx context.Context, pollID uuid.UUID, identity string) (bool, error)
	// RecordVote inserts the vote and increments its option counter in one
	// transaction. A duplicate (poll, identity) pair yields
	// domain.ErrAlreadyVoted; an option outside the poll yields
	// domain.ErrOptionNotFound.
	RecordVote(ctx context.Context, vote *domain.Vote) error
	GetByIdentity(ctx context.Context, pollID uuid.UUID, identity string) (*domain.Vote, error)
	ListVoterIdentities(ctx context.Context, pollID uuid.UUID) ([]string, error)
	CountByPoll(ctx context.Context, pollID uuid.UUID) (int64, error)
}

type VoteInput struct {
	PollID        uuid.UUID
	OptionID      uuid.UUID
	VoterIdentity string
}

type VoteService interface {
	CastVote(ctx context.Context, input VoteInput) (*domain.Vote, error)
	MyVote(ctx context.Context, pollID uuid.UUID, identity string) (*domain.Vote, error)
}
