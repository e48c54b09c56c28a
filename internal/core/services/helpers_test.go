package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type published struct {
	Topic string
	Event domain.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Event: event})
}

func (p *recordingPublisher) All() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func (p *recordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	clock     *fakeClock
	store     *memory.Store
	publisher *recordingPublisher
	identity  *services.IdentityService
	polls     ports.PollService
	votes     ports.VoteService
	stats     ports.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()
	store := memory.NewStore(clock.Now)
	publisher := &recordingPublisher{}

	identity := services.NewIdentityService(store.Votes(), "test-secret", clock, nil)
	stats := services.NewStatsService(store.Polls(), store.Results())

	return &fixture{
		clock:     clock,
		store:     store,
		publisher: publisher,
		identity:  identity,
		polls:     services.NewPollService(store.Polls(), publisher, clock, nil),
		votes:     services.NewVoteService(store.Polls(), store.Votes(), identity, stats, publisher, clock, nil),
		stats:     stats,
	}
}

func (f *fixture) createPoll(t *testing.T, options ...string) *domain.Poll {
	t.Helper()
	poll, err := f.polls.Create(context.Background(), ports.CreatePollInput{
		Title:   "Best lunch spot",
		Options: options,
	})
	require.NoError(t, err)
	return poll
}

// vote casts a vote with a plain identity string. Such identities carry no
// readable timestamp, so the similarity heuristic never flags them.
func (f *fixture) vote(t *testing.T, poll *domain.Poll, option int, identity string) {
	t.Helper()
	_, err := f.votes.CastVote(context.Background(), ports.VoteInput{
		PollID:        poll.ID,
		OptionID:      poll.Options[option].ID,
		VoterIdentity: identity,
	})
	require.NoError(t, err)
}
