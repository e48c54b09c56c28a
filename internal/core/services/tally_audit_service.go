package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// AuditConcurrency caps how many polls are audited at once.
const AuditConcurrency = 8

type tallyAuditService struct {
	pollRepo   ports.PollRepository
	resultRepo ports.PollResultRepository
	logger     *slog.Logger
}

// NewTallyAuditService builds the read-only auditor comparing each option's
// cached votes_count with the number of vote rows pointing at it.
func NewTallyAuditService(pollRepo ports.PollRepository, resultRepo ports.PollResultRepository, logger *slog.Logger) ports.TallyAuditService {
	return &tallyAuditService{
		pollRepo:   pollRepo,
		resultRepo: resultRepo,
		logger:     resolveLogger(logger),
	}
}

func (s *tallyAuditService) AuditAll(ctx context.Context) ([]domain.TallyDrift, error) {
	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var mu sync.Mutex
	drifts := []domain.TallyDrift{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(AuditConcurrency)
	for _, poll := range polls {
		pollID := poll.ID
		g.Go(func() error {
			found, err := s.resultRepo.TallyDrift(gctx, pollID)
			if err != nil {
				return fmt.Errorf("failed to audit poll %s: %w", pollID, err)
			}
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			drifts = append(drifts, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].PollID != drifts[j].PollID {
			return drifts[i].PollID.String() < drifts[j].PollID.String()
		}
		return drifts[i].OptionID.String() < drifts[j].OptionID.String()
	})

	for _, d := range drifts {
		s.logger.Warn("option counter drift",
			"poll_id", d.PollID,
			"option_id", d.OptionID,
			"cached", d.CachedCount,
			"recorded", d.RecordedCount,
		)
	}
	s.logger.Info("tally audit finished", "polls", len(polls), "drifts", len(drifts))

	return drifts, nil
}
