package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

func TestCastVote(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")
	f.publisher.Reset()

	vote, err := f.votes.CastVote(context.Background(), ports.VoteInput{
		PollID:        poll.ID,
		OptionID:      poll.Options[1].ID,
		VoterIdentity: "voter-1",
	})
	require.NoError(t, err)
	assert.Equal(t, poll.ID, vote.PollID)
	assert.Equal(t, poll.Options[1].ID, vote.OptionID)
	assert.Equal(t, f.clock.Now(), vote.CreatedAt)

	stored, err := f.store.Polls().GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Options[0].VotesCount)
	assert.Equal(t, int64(1), stored.Options[1].VotesCount)

	events := f.publisher.All()
	require.Len(t, events, 3)
	assert.Equal(t, domain.TopicPoll(poll.ID), events[0].Topic)
	assert.Equal(t, domain.EventVoteCast, events[0].Event.Type)
	assert.Equal(t, domain.TopicActivity, events[1].Topic)
	assert.Equal(t, domain.EventVoteActivity, events[1].Event.Type)
	assert.Equal(t, domain.TopicPollStats(poll.ID), events[2].Topic)
	assert.Equal(t, domain.EventStatsUpdated, events[2].Event.Type)

	stats, ok := events[2].Event.Payload.(*domain.PollStats)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalVotes)
}

func TestCastVoteTwice(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")
	f.vote(t, poll, 0, "voter-1")

	_, err := f.votes.CastVote(context.Background(), ports.VoteInput{
		PollID:        poll.ID,
		OptionID:      poll.Options[1].ID,
		VoterIdentity: "voter-1",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	count, err := f.store.Votes().CountByPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCastVoteConcurrentlyWithSameIdentity(t *testing.T) {
	const attempts = 16

	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		results  = make(chan error, attempts)
		identity = "voter-racing"
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			<-start
			_, err := f.votes.CastVote(context.Background(), ports.VoteInput{
				PollID:        poll.ID,
				OptionID:      poll.Options[option%2].ID,
				VoterIdentity: identity,
			})
			results <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrAlreadyVoted):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)

	stored, err := f.store.Polls().GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TotalVotes())
}

func TestCastVoteOnExpiredPoll(t *testing.T) {
	f := newFixture(t)
	expiresAt := f.clock.Now().Add(time.Hour)
	poll, err := f.polls.Create(context.Background(), ports.CreatePollInput{
		Title:     "Closing soon",
		Options:   []string{"Yes", "No"},
		ExpiresAt: &expiresAt,
	})
	require.NoError(t, err)
	f.vote(t, poll, 0, "early-voter")

	f.clock.Advance(time.Hour)

	for _, identity := range []string{"early-voter", "late-voter"} {
		_, err := f.votes.CastVote(context.Background(), ports.VoteInput{
			PollID:        poll.ID,
			OptionID:      poll.Options[1].ID,
			VoterIdentity: identity,
		})
		assert.ErrorIs(t, err, domain.ErrPollExpired, identity)
	}
}

func TestCastVoteRejectsSimilarIdentity(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")

	first, err := f.identity.Issue()
	require.NoError(t, err)
	f.vote(t, poll, 0, first)

	f.clock.Advance(20 * time.Second)
	second, err := f.identity.Issue()
	require.NoError(t, err)

	_, err = f.votes.CastVote(context.Background(), ports.VoteInput{
		PollID:        poll.ID,
		OptionID:      poll.Options[1].ID,
		VoterIdentity: second,
	})
	assert.ErrorIs(t, err, domain.ErrSuspiciousActivity)

	f.clock.Advance(2 * time.Hour)
	third, err := f.identity.Issue()
	require.NoError(t, err)
	f.vote(t, poll, 1, third)
}

func TestCastVoteChecksRunInOrder(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes")
	other := f.createPoll(t, "Elsewhere")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, ports.VoteInput{PollID: uuid.New(), OptionID: poll.Options[0].ID, VoterIdentity: "v"})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = f.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: other.Options[0].ID, VoterIdentity: "v"})
	assert.ErrorIs(t, err, domain.ErrOptionNotFound, "an option from another poll is not found")

	f.vote(t, poll, 0, "v")
	_, err = f.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: uuid.New(), VoterIdentity: "v"})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted, "the duplicate check precedes the option check")

	_, ok := domain.AsRejection(err)
	assert.True(t, ok)
}

func TestMyVote(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")
	ctx := context.Background()

	_, err := f.votes.MyVote(ctx, poll.ID, "voter-1")
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)

	f.vote(t, poll, 1, "voter-1")
	vote, err := f.votes.MyVote(ctx, poll.ID, "voter-1")
	require.NoError(t, err)
	assert.Equal(t, poll.Options[1].ID, vote.OptionID)

	_, err = f.votes.MyVote(ctx, uuid.New(), "voter-1")
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

// committedElsewhereRepo behaves as if another request recorded the same
// (poll, identity) pair between the prior-vote check and the commit.
type committedElsewhereRepo struct {
	ports.VoteRepository
	recordCalls int
}

func (r *committedElsewhereRepo) HasVoted(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (r *committedElsewhereRepo) RecordVote(context.Context, *domain.Vote) error {
	r.recordCalls++
	return domain.ErrAlreadyVoted
}

func TestCastVoteDuplicateDetectedAtCommit(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(t, "Yes", "No")
	f.publisher.Reset()

	repo := &committedElsewhereRepo{VoteRepository: f.store.Votes()}
	votes := services.NewVoteService(f.store.Polls(), repo, f.identity, f.stats, f.publisher, f.clock, nil)

	vote, err := votes.CastVote(context.Background(), ports.VoteInput{
		PollID:        poll.ID,
		OptionID:      poll.Options[0].ID,
		VoterIdentity: "voter-1",
	})
	require.Error(t, err)
	assert.Nil(t, vote)
	assert.Equal(t, 1, repo.recordCalls)

	rejection, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectionAlreadyVoted, rejection)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	assert.Empty(t, f.publisher.All())

	stats, err := f.stats.StatsForPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalVotes)
}
