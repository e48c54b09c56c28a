package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type voteService struct {
	pollRepo  ports.PollRepository
	voteRepo  ports.VoteRepository
	identity  ports.IdentityService
	stats     ports.StatsService
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

func NewVoteService(
	pollRepo ports.PollRepository,
	voteRepo ports.VoteRepository,
	identity ports.IdentityService,
	stats ports.StatsService,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *slog.Logger,
) ports.VoteService {
	if clock == nil {
		clock = systemClock{}
	}
	return &voteService{
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		identity:  identity,
		stats:     stats,
		publisher: publisher,
		clock:     clock,
		logger:    resolveLogger(logger),
	}
}

// CastVote admits or rejects a vote. Checks run in order and stop at the
// first failure: poll exists, poll active, no prior vote, no similar
// identity, option belongs to poll. The unique (poll, identity) constraint
// in storage is what actually guarantees one vote per identity; the prior
// vote check only avoids a doomed transaction.
func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) (*domain.Vote, error) {
	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !poll.IsActive(now) {
		return nil, s.reject(domain.RejectionPollExpired, input)
	}

	hasVoted, err := s.voteRepo.HasVoted(ctx, input.PollID, input.VoterIdentity)
	if err != nil {
		return nil, err
	}
	if hasVoted {
		return nil, s.reject(domain.RejectionAlreadyVoted, input)
	}

	suspicious, err := s.identity.Suspicious(ctx, input.PollID, input.VoterIdentity)
	if err != nil {
		return nil, err
	}
	if suspicious {
		return nil, s.reject(domain.RejectionSuspiciousActivity, input)
	}

	if _, ok := poll.Option(input.OptionID); !ok {
		return nil, domain.ErrOptionNotFound
	}

	vote := &domain.Vote{
		ID:            uuid.New(),
		PollID:        input.PollID,
		OptionID:      input.OptionID,
		VoterIdentity: input.VoterIdentity,
		CreatedAt:     now,
	}

	if err := s.voteRepo.RecordVote(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			return nil, s.reject(domain.RejectionAlreadyVoted, input)
		}
		return nil, err
	}

	s.logger.Info("vote cast", "poll_id", vote.PollID, "option_id", vote.OptionID, "vote_id", vote.ID)
	s.notify(ctx, vote)

	return vote, nil
}

func (s *voteService) MyVote(ctx context.Context, pollID uuid.UUID, identity string) (*domain.Vote, error) {
	if _, err := s.pollRepo.GetByID(ctx, pollID); err != nil {
		return nil, err
	}
	return s.voteRepo.GetByIdentity(ctx, pollID, identity)
}

// notify publishes the post-commit events. Stats are recomputed from the
// committed state; failing to do so only drops the stats event.
func (s *voteService) notify(ctx context.Context, vote *domain.Vote) {
	payload := domain.VoteCastPayload{VoteID: vote.ID, OptionID: vote.OptionID}
	s.publisher.Publish(ctx, domain.TopicPoll(vote.PollID),
		domain.NewEvent(domain.EventVoteCast, vote.PollID, vote.CreatedAt, payload))
	s.publisher.Publish(ctx, domain.TopicActivity,
		domain.NewEvent(domain.EventVoteActivity, vote.PollID, vote.CreatedAt, payload))

	stats, err := s.stats.StatsForPoll(ctx, vote.PollID)
	if err != nil {
		s.logger.Warn("failed to recompute stats after vote",
			"poll_id", vote.PollID,
			"error", err,
		)
		return
	}
	s.publisher.Publish(ctx, domain.TopicPollStats(vote.PollID),
		domain.NewEvent(domain.EventStatsUpdated, vote.PollID, s.clock.Now(), stats))
}

func (s *voteService) reject(reason domain.Rejection, input ports.VoteInput) error {
	s.logger.Info("vote rejected",
		"poll_id", input.PollID,
		"option_id", input.OptionID,
		"reason", string(reason),
	)
	return reason
}
