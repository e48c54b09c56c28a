package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type pollService struct {
	repo      ports.PollRepository
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

func NewPollService(repo ports.PollRepository, publisher ports.EventPublisher, clock ports.Clock, logger *slog.Logger) ports.PollService {
	if clock == nil {
		clock = systemClock{}
	}
	return &pollService{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    resolveLogger(logger),
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	now := s.clock.Now()
	title := strings.TrimSpace(input.Title)

	errs := domain.ValidationErrors{}
	errs.Check("title", domain.ValidateTitle(title))
	errs.Check("description", domain.ValidateDescription(input.Description))
	errs.Check("expires_at", domain.ValidateExpiresAt(input.ExpiresAt, now))
	errs.Check("category", domain.ValidateCategory(input.Category))
	tags, msg := domain.NormalizeTags(input.Tags)
	errs.Check("tags", msg)
	options, msg := domain.NormalizeOptions(input.Options)
	errs.Check("options", msg)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	poll := &domain.Poll{
		ID:          uuid.New(),
		Title:       title,
		Description: input.Description,
		Category:    input.Category,
		Tags:        tags,
		ExpiresAt:   utcPtr(input.ExpiresAt),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	poll.Options = buildOptions(poll.ID, options, now)

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "options", len(poll.Options))
	s.publisher.Publish(ctx, domain.TopicAllPolls, domain.NewEvent(domain.EventPollCreated, poll.ID, now, poll))

	return poll, nil
}

func (s *pollService) Update(ctx context.Context, id uuid.UUID, input ports.UpdatePollInput) (*domain.Poll, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	errs := domain.ValidationErrors{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		errs.Check("title", domain.ValidateTitle(title))
		poll.Title = title
	}
	if input.Description != nil {
		errs.Check("description", domain.ValidateDescription(*input.Description))
		poll.Description = *input.Description
	}
	switch {
	case input.ClearExpiresAt:
		poll.ExpiresAt = nil
	case input.ExpiresAt != nil:
		errs.Check("expires_at", domain.ValidateExpiresAt(input.ExpiresAt, now))
		poll.ExpiresAt = utcPtr(input.ExpiresAt)
	}
	switch {
	case input.ClearCategory:
		poll.Category = nil
	case input.Category != nil:
		errs.Check("category", domain.ValidateCategory(input.Category))
		poll.Category = input.Category
	}
	if input.Tags != nil {
		tags, msg := domain.NormalizeTags(input.Tags)
		errs.Check("tags", msg)
		poll.Tags = tags
	}

	replaceOptions := input.Options != nil
	if replaceOptions {
		options, msg := domain.NormalizeOptions(input.Options)
		errs.Check("options", msg)
		poll.Options = buildOptions(poll.ID, options, now)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	poll.UpdatedAt = now
	if err := s.repo.Update(ctx, poll, replaceOptions); err != nil {
		return nil, err
	}

	s.logger.Info("poll updated", "poll_id", poll.ID, "options_replaced", replaceOptions)
	event := domain.NewEvent(domain.EventPollUpdated, poll.ID, now, poll)
	s.publisher.Publish(ctx, domain.TopicPoll(poll.ID), event)
	s.publisher.Publish(ctx, domain.TopicAllPolls, event)

	return poll, nil
}

func (s *pollService) Delete(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("poll deleted", "poll_id", id)
	event := domain.NewEvent(domain.EventPollDeleted, id, s.clock.Now(), nil)
	s.publisher.Publish(ctx, domain.TopicPoll(id), event)
	s.publisher.Publish(ctx, domain.TopicAllPolls, event)

	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll %s: %w", pollID, err)
	}
	return poll, nil
}

func buildOptions(pollID uuid.UUID, texts []string, now time.Time) []domain.PollOption {
	options := make([]domain.PollOption, 0, len(texts))
	for i, text := range texts {
		options = append(options, domain.PollOption{
			ID:        uuid.New(),
			PollID:    pollID,
			Text:      text,
			Position:  i,
			CreatedAt: now,
		})
	}
	return options
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
