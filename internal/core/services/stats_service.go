package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const pageSize = 10

type statsService struct {
	pollRepo   ports.PollRepository
	resultRepo ports.PollResultRepository
}

func NewStatsService(pollRepo ports.PollRepository, resultRepo ports.PollResultRepository) ports.StatsService {
	return &statsService{
		pollRepo:   pollRepo,
		resultRepo: resultRepo,
	}
}

func (s *statsService) StatsForPoll(ctx context.Context, pollID uuid.UUID) (*domain.PollStats, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return ComputePollStats(poll), nil
}

// StatsForPolls builds listing stats for the given polls from one grouped
// vote count. Only options that received votes are listed.
func (s *statsService) StatsForPolls(ctx context.Context, pollIDs []uuid.UUID) (map[uuid.UUID]domain.PollSummary, error) {
	counts, err := s.countsByPoll(ctx, pollIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]domain.PollSummary, len(pollIDs))
	for _, id := range pollIDs {
		byOption := counts[id]
		optionIDs := make([]uuid.UUID, 0, len(byOption))
		for optionID := range byOption {
			optionIDs = append(optionIDs, optionID)
		}
		sort.Slice(optionIDs, func(i, j int) bool {
			return optionIDs[i].String() < optionIDs[j].String()
		})
		result[id] = summarize(id, optionIDs, byOption)
	}
	return result, nil
}

func (s *statsService) StatsForPollListing(ctx context.Context, input ports.ListPollsInput) ([]domain.PollListing, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	polls, err := s.pollRepo.List(ctx, input.Filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.ID)
	}
	counts, err := s.countsByPoll(ctx, ids)
	if err != nil {
		return nil, err
	}

	listings := make([]domain.PollListing, 0, len(polls))
	for _, p := range polls {
		optionIDs := make([]uuid.UUID, 0, len(p.Options))
		for _, opt := range p.Options {
			optionIDs = append(optionIDs, opt.ID)
		}
		listings = append(listings, domain.PollListing{
			Poll:  p,
			Stats: summarize(p.ID, optionIDs, counts[p.ID]),
		})
	}
	return listings, nil
}

func (s *statsService) countsByPoll(ctx context.Context, pollIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]map[uuid.UUID]int64, len(pollIDs))
	if len(pollIDs) == 0 {
		return counts, nil
	}

	rows, err := s.resultRepo.CountVotesByPolls(ctx, pollIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	for _, row := range rows {
		byOption, ok := counts[row.PollID]
		if !ok {
			byOption = make(map[uuid.UUID]int64)
			counts[row.PollID] = byOption
		}
		byOption[row.OptionID] += row.Count
	}
	return counts, nil
}

func summarize(pollID uuid.UUID, optionIDs []uuid.UUID, counts map[uuid.UUID]int64) domain.PollSummary {
	var total int64
	for _, id := range optionIDs {
		total += counts[id]
	}

	summary := domain.PollSummary{
		PollID:     pollID,
		TotalVotes: total,
		Options:    make([]domain.OptionShare, 0, len(optionIDs)),
	}
	for _, id := range optionIDs {
		summary.Options = append(summary.Options, domain.OptionShare{
			OptionID:   id,
			VotesCount: counts[id],
			Percentage: Percentage(counts[id], total),
		})
	}
	return summary
}

// ComputePollStats derives the detail statistics of a poll from its options'
// vote counters. Options keep the poll's order; Rank orders them by votes,
// ties going to the lower option id.
func ComputePollStats(poll *domain.Poll) *domain.PollStats {
	total := poll.TotalVotes()
	stats := &domain.PollStats{
		PollID:     poll.ID,
		TotalVotes: total,
		Options:    make([]domain.OptionStats, 0, len(poll.Options)),
	}

	for i, opt := range poll.Options {
		share := 0.0
		if total > 0 {
			share = float64(opt.VotesCount) / float64(total)
		}
		stats.Options = append(stats.Options, domain.OptionStats{
			OptionID:   opt.ID,
			Text:       opt.Text,
			VotesCount: opt.VotesCount,
			Percentage: Percentage(opt.VotesCount, total),
			VoteShare:  share,
		})

		if i == 0 || opt.VotesCount > stats.MaxVotes {
			stats.MaxVotes = opt.VotesCount
		}
		if i == 0 || opt.VotesCount < stats.MinVotes {
			stats.MinVotes = opt.VotesCount
		}
	}

	ranked := make([]int, len(stats.Options))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		oa, ob := stats.Options[ranked[a]], stats.Options[ranked[b]]
		if oa.VotesCount != ob.VotesCount {
			return oa.VotesCount > ob.VotesCount
		}
		return oa.OptionID.String() < ob.OptionID.String()
	})
	for rank, idx := range ranked {
		stats.Options[idx].Rank = rank + 1
	}

	if total > 0 && len(poll.Options) > 0 {
		stats.AverageVotesPerOption = round1(float64(total) / float64(len(poll.Options)))
		leader := stats.Options[ranked[0]].OptionID
		stats.LeadingOptionID = &leader
	}
	stats.VoteDistribution = distributionLabel(stats.Options, total)

	return stats
}

// Percentage is count/total*100 rounded to one decimal, half away from zero.
// A zero total yields 0.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0.0
	}
	return round1(float64(count) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func distributionLabel(options []domain.OptionStats, total int64) string {
	if total == 0 {
		return domain.DistributionNoVotes
	}

	withVotes := 0
	var top int64
	for _, opt := range options {
		if opt.VotesCount > 0 {
			withVotes++
		}
		if opt.VotesCount > top {
			top = opt.VotesCount
		}
	}
	if withVotes == 1 {
		return domain.DistributionUnanimous
	}

	share := float64(top) / float64(total)
	switch {
	case share >= 0.6:
		return domain.DistributionClearLeader
	case share >= 0.4:
		return domain.DistributionStrongPreference
	default:
		return domain.DistributionCompetitive
	}
}
