package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

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

func vote(p *domain.Poll, option int, identity string) *domain.Vote {
	return &domain.Vote{
		ID:            uuid.New(),
		PollID:        p.ID,
		OptionID:      p.Options[option].ID,
		VoterIdentity: identity,
		CreatedAt:     base,
	}
}

func TestRecordVote(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	p := newPoll("Lunch", base, "Pizza", "Sushi")
	other := newPoll("Dinner", base, "Soup")
	require.NoError(t, s.Polls().Save(ctx, p))
	require.NoError(t, s.Polls().Save(ctx, other))

	require.NoError(t, s.Votes().RecordVote(ctx, vote(p, 1, "alice")))
	assert.ErrorIs(t, s.Votes().RecordVote(ctx, vote(p, 0, "alice")), domain.ErrAlreadyVoted)

	crossPoll := vote(p, 0, "bob")
	crossPoll.OptionID = other.Options[0].ID
	assert.ErrorIs(t, s.Votes().RecordVote(ctx, crossPoll), domain.ErrOptionNotFound)

	missing := vote(p, 0, "carol")
	missing.PollID = uuid.New()
	assert.ErrorIs(t, s.Votes().RecordVote(ctx, missing), domain.ErrPollNotFound)

	stored, err := s.Polls().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Options[0].VotesCount)
	assert.Equal(t, int64(1), stored.Options[1].VotesCount)

	identities, err := s.Votes().ListVoterIdentities(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, identities)
}

func TestReturnedPollsAreCopies(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	p := newPoll("Lunch", base, "Pizza")
	require.NoError(t, s.Polls().Save(ctx, p))

	got, err := s.Polls().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Options[0].VotesCount = 42
	got.Title = "changed"

	again, err := s.Polls().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", again.Title)
	assert.Equal(t, int64(0), again.Options[0].VotesCount)
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	p := newPoll("Lunch", base, "Pizza", "Sushi")
	require.NoError(t, s.Polls().Save(ctx, p))
	require.NoError(t, s.Votes().RecordVote(ctx, vote(p, 0, "alice")))

	p.Title = "Brunch"
	require.NoError(t, s.Polls().Update(ctx, p, false))
	n, err := s.Votes().CountByPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p.Options = newPoll("", base, "Bagels").Options
	p.Options[0].PollID = p.ID
	require.NoError(t, s.Polls().Update(ctx, p, true))
	n, err = s.Votes().CountByPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	stored, err := s.Polls().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brunch", stored.Title)
	require.Len(t, stored.Options, 1)
	assert.Equal(t, "Bagels", stored.Options[0].Text)

	require.NoError(t, s.Polls().Delete(ctx, p.ID))
	assert.ErrorIs(t, s.Polls().Delete(ctx, p.ID), domain.ErrPollNotFound)
	assert.ErrorIs(t, s.Polls().Update(ctx, p, false), domain.ErrPollNotFound)
}

func TestListFilters(t *testing.T) {
	now := base.Add(48 * time.Hour)
	s := NewStore(func() time.Time { return now })
	ctx := context.Background()

	food := domain.CategoryFood
	soon := now.Add(time.Hour)
	later := now.Add(24 * time.Hour)
	gone := now.Add(-time.Hour)

	lunch := newPoll("Team lunch", base, "Pizza", "Sushi")
	lunch.Category = &food
	lunch.Tags = []string{"team", "friday"}
	lunch.ExpiresAt = &later

	editor := newPoll("Favorite editor", base.Add(time.Hour), "Vim", "Emacs")
	editor.Description = "settle it at lunch"
	editor.ExpiresAt = &soon

	old := newPoll("Old question", base.Add(2*time.Hour), "Yes")
	old.ExpiresAt = &gone

	for _, p := range []*domain.Poll{lunch, editor, old} {
		require.NoError(t, s.Polls().Save(ctx, p))
	}
	require.NoError(t, s.Votes().RecordVote(ctx, vote(editor, 0, "a")))
	require.NoError(t, s.Votes().RecordVote(ctx, vote(editor, 1, "b")))
	require.NoError(t, s.Votes().RecordVote(ctx, vote(lunch, 0, "a")))

	titles := func(filters ...domain.Filter) []string {
		t.Helper()
		polls, err := s.Polls().List(ctx, filters, 10, 0)
		require.NoError(t, err)
		out := make([]string, 0, len(polls))
		for _, p := range polls {
			out = append(out, p.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Old question", "Favorite editor", "Team lunch"}, titles())
	assert.Equal(t, []string{"Favorite editor", "Team lunch"}, titles(domain.TextSearch{Query: "LUNCH"}))
	assert.Equal(t, []string{"Team lunch"}, titles(domain.CategoryFilter{Category: domain.CategoryFood}))
	assert.Equal(t, []string{"Team lunch"}, titles(domain.TagFilter{Tag: "friday"}))
	assert.Equal(t, []string{"Old question"}, titles(domain.StatusFilter{Status: domain.PollStatusExpired}))
	assert.Equal(t, []string{"Favorite editor", "Team lunch"}, titles(domain.StatusFilter{Status: domain.PollStatusActive}))
	assert.Equal(t, []string{"Team lunch", "Favorite editor", "Old question"}, titles(domain.SortOrder{Sort: domain.SortOldest}))
	assert.Equal(t, []string{"Favorite editor", "Team lunch", "Old question"}, titles(domain.SortOrder{Sort: domain.SortMostVotes}))
	assert.Equal(t, []string{"Old question", "Favorite editor", "Team lunch"}, titles(domain.SortOrder{Sort: domain.SortEndingSoon}))
	assert.Equal(t, []string{"Favorite editor"}, titles(
		domain.StatusFilter{Status: domain.PollStatusActive},
		domain.SortOrder{Sort: domain.SortEndingSoon},
		domain.TextSearch{Query: "editor"},
	))

	page, err := s.Polls().List(ctx, nil, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Team lunch", page[0].Title)
}

func TestResults(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	p := newPoll("Lunch", base, "Pizza", "Sushi")
	require.NoError(t, s.Polls().Save(ctx, p))
	require.NoError(t, s.Votes().RecordVote(ctx, vote(p, 0, "a")))
	require.NoError(t, s.Votes().RecordVote(ctx, vote(p, 0, "b")))

	counts, err := s.Results().CountVotesByPolls(ctx, []uuid.UUID{p.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, domain.VoteCount{PollID: p.ID, OptionID: p.Options[0].ID, Count: 2}, counts[0])

	drifts, err := s.Results().TallyDrift(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	bumpCounter(s, p.ID, p.Options[1].ID, 1)
	drifts, err = s.Results().TallyDrift(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, int64(1), drifts[0].CachedCount)
	assert.Equal(t, int64(0), drifts[0].RecordedCount)
}

// bumpCounter shifts an option counter without a vote row.
func bumpCounter(s *Store, pollID, optionID uuid.UUID, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[pollID]; ok {
		for i := range p.Options {
			if p.Options[i].ID == optionID {
				p.Options[i].VotesCount += delta
			}
		}
	}
}
