package ports

import (
	"context"

	"github.com/google/uuid"
)

type IdentityService interface {
	Issue() (string, error)
	Validate(token string) error
	Similarity(a, b string) float64
	Suspicious(ctx context.Context, pollID uuid.UUID, identity string) (bool, error)
}
