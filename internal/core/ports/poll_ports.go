package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	// Update persists poll attributes. When replaceOptions is set, every
	// existing option and vote of the poll is deleted and poll.Options is
	// inserted in the same transaction.
	Update(ctx context.Context, poll *domain.Poll, replaceOptions bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
	List(ctx context.Context, filters []domain.Filter, limit, offset int) ([]*domain.Poll, error)
}

type CreatePollInput struct {
	Title       string
	Description string
	Options     []string
	ExpiresAt   *time.Time
	Category    *domain.Category
	Tags        []string
}

// UpdatePollInput carries optional changes. Nil fields are left untouched;
// a non-nil Options replaces the whole option set and drops all votes.
type UpdatePollInput struct {
	Title          *string
	Description    *string
	Options        []string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	Category       *domain.Category
	ClearCategory  bool
	Tags           []string
}

type ListPollsInput struct {
	Page    int
	Filters []domain.Filter
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePollInput) (*domain.Poll, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
}

type Clock interface {
	Now() time.Time
}
