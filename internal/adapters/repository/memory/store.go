// Package memory is an in-process store implementing the repository ports
// with the same constraints as the Postgres schema: one vote per identity
// and poll, options bound to their poll, counters moved only with votes and
// cascading deletes. All state sits behind a single mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type voteKey struct {
	pollID   uuid.UUID
	identity string
}

type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	polls map[uuid.UUID]*domain.Poll
	votes map[voteKey]domain.Vote
}

// NewStore returns an empty store. now drives the status filter; nil means
// time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:   now,
		polls: make(map[uuid.UUID]*domain.Poll),
		votes: make(map[voteKey]domain.Vote),
	}
}

func (s *Store) Polls() ports.PollRepository         { return pollRepository{s} }
func (s *Store) Votes() ports.VoteRepository         { return voteRepository{s} }
func (s *Store) Results() ports.PollResultRepository { return resultRepository{s} }

func clonePoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.Options = append([]domain.PollOption{}, p.Options...)
	c.Tags = append([]string{}, p.Tags...)
	if p.Category != nil {
		cat := *p.Category
		c.Category = &cat
	}
	if p.ExpiresAt != nil {
		exp := *p.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

type pollRepository struct{ s *Store }

func (r pollRepository) Save(_ context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := clonePoll(poll)
	for i := range stored.Options {
		stored.Options[i].VotesCount = 0
	}
	r.s.polls[poll.ID] = stored
	return nil
}

func (r pollRepository) Update(_ context.Context, poll *domain.Poll, replaceOptions bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.polls[poll.ID]
	if !ok {
		return domain.ErrPollNotFound
	}

	updated := clonePoll(poll)
	if replaceOptions {
		r.s.deleteVotesLocked(poll.ID)
		for i := range updated.Options {
			updated.Options[i].VotesCount = 0
		}
	} else {
		updated.Options = append([]domain.PollOption{}, current.Options...)
	}
	r.s.polls[poll.ID] = updated
	return nil
}

func (r pollRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(r.s.polls, id)
	r.s.deleteVotesLocked(id)
	return nil
}

func (s *Store) deleteVotesLocked(pollID uuid.UUID) {
	for k := range s.votes {
		if k.pollID == pollID {
			delete(s.votes, k)
		}
	}
}

func (r pollRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(p), nil
}

func (r pollRepository) GetAll(_ context.Context) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	polls := make([]*domain.Poll, 0, len(r.s.polls))
	for _, p := range r.s.polls {
		polls = append(polls, clonePoll(p))
	}
	sort.Slice(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.Before(polls[j].CreatedAt)
		}
		return polls[i].ID.String() < polls[j].ID.String()
	})
	return polls, nil
}

func (r pollRepository) List(_ context.Context, filters []domain.Filter, limit, offset int) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	sortBy := domain.SortNewest
	var matchers []func(*domain.Poll) bool

	for _, f := range filters {
		switch f := f.(type) {
		case domain.TextSearch:
			q := strings.ToLower(f.Query)
			matchers = append(matchers, func(p *domain.Poll) bool {
				return strings.Contains(strings.ToLower(p.Title), q) ||
					strings.Contains(strings.ToLower(p.Description), q)
			})
		case domain.CategoryFilter:
			matchers = append(matchers, func(p *domain.Poll) bool {
				return p.Category != nil && *p.Category == f.Category
			})
		case domain.TagFilter:
			matchers = append(matchers, func(p *domain.Poll) bool {
				for _, t := range p.Tags {
					if t == f.Tag {
						return true
					}
				}
				return false
			})
		case domain.StatusFilter:
			active := f.Status == domain.PollStatusActive
			matchers = append(matchers, func(p *domain.Poll) bool {
				return p.IsActive(now) == active
			})
		case domain.SortOrder:
			sortBy = f.Sort
		}
	}

	var polls []*domain.Poll
	for _, p := range r.s.polls {
		keep := true
		for _, match := range matchers {
			if !match(p) {
				keep = false
				break
			}
		}
		if keep {
			polls = append(polls, p)
		}
	}

	sort.Slice(polls, func(i, j int) bool {
		a, b := polls[i], polls[j]
		switch sortBy {
		case domain.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case domain.SortMostVotes:
			if a.TotalVotes() != b.TotalVotes() {
				return a.TotalVotes() > b.TotalVotes()
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case domain.SortEndingSoon:
			switch {
			case a.ExpiresAt != nil && b.ExpiresAt == nil:
				return true
			case a.ExpiresAt == nil && b.ExpiresAt != nil:
				return false
			case a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
				return a.ExpiresAt.Before(*b.ExpiresAt)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	})

	if offset >= len(polls) {
		return []*domain.Poll{}, nil
	}
	polls = polls[offset:]
	if limit > 0 && limit < len(polls) {
		polls = polls[:limit]
	}

	out := make([]*domain.Poll, 0, len(polls))
	for _, p := range polls {
		out = append(out, clonePoll(p))
	}
	return out, nil
}

type voteRepository struct{ s *Store }

func (r voteRepository) RecordVote(_ context.Context, vote *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.polls[vote.PollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	idx := -1
	for i := range p.Options {
		if p.Options[i].ID == vote.OptionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrOptionNotFound
	}

	key := voteKey{pollID: vote.PollID, identity: vote.VoterIdentity}
	if _, exists := r.s.votes[key]; exists {
		return domain.ErrAlreadyVoted
	}

	r.s.votes[key] = *vote
	p.Options[idx].VotesCount++
	return nil
}

func (r voteRepository) HasVoted(_ context.Context, pollID uuid.UUID, identity string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.votes[voteKey{pollID: pollID, identity: identity}]
	return ok, nil
}

func (r voteRepository) GetByIdentity(_ context.Context, pollID uuid.UUID, identity string) (*domain.Vote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.votes[voteKey{pollID: pollID, identity: identity}]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	return &v, nil
}

func (r voteRepository) ListVoterIdentities(_ context.Context, pollID uuid.UUID) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var identities []string
	for k := range r.s.votes {
		if k.pollID == pollID {
			identities = append(identities, k.identity)
		}
	}
	sort.Strings(identities)
	return identities, nil
}

func (r voteRepository) CountByPoll(_ context.Context, pollID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for k := range r.s.votes {
		if k.pollID == pollID {
			n++
		}
	}
	return n, nil
}

type resultRepository struct{ s *Store }

func (r resultRepository) CountVotesByPolls(_ context.Context, pollIDs []uuid.UUID) ([]domain.VoteCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(pollIDs))
	for _, id := range pollIDs {
		wanted[id] = true
	}

	type key struct{ poll, option uuid.UUID }
	grouped := make(map[key]int64)
	for _, v := range r.s.votes {
		if wanted[v.PollID] {
			grouped[key{v.PollID, v.OptionID}]++
		}
	}

	counts := make([]domain.VoteCount, 0, len(grouped))
	for k, n := range grouped {
		counts = append(counts, domain.VoteCount{PollID: k.poll, OptionID: k.option, Count: n})
	}
	return counts, nil
}

func (r resultRepository) TallyDrift(_ context.Context, pollID uuid.UUID) ([]domain.TallyDrift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.polls[pollID]
	if !ok {
		return nil, nil
	}

	recorded := make(map[uuid.UUID]int64)
	for _, v := range r.s.votes {
		if v.PollID == pollID {
			recorded[v.OptionID]++
		}
	}

	var drifts []domain.TallyDrift
	for _, opt := range p.Options {
		if opt.VotesCount != recorded[opt.ID] {
			drifts = append(drifts, domain.TallyDrift{
				PollID:        pollID,
				OptionID:      opt.ID,
				CachedCount:   opt.VotesCount,
				RecordedCount: recorded[opt.ID],
			})
		}
	}
	return drifts, nil
}
