package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

// SuspicionThreshold is the similarity above which two identities voting in
// the same poll are treated as the same person.
const SuspicionThreshold = 0.8

// identityClaims carries the creation time in milliseconds. The registered
// iat claim is truncated to whole seconds, which is too coarse for the
// similarity steps.
type identityClaims struct {
	jwt.RegisteredClaims
	CreatedAtMillis int64 `json:"cat,omitempty"`
}

func (c *identityClaims) createdAt() (time.Time, bool) {
	if c.CreatedAtMillis > 0 {
		return time.UnixMilli(c.CreatedAtMillis).UTC(), true
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time, true
	}
	return time.Time{}, false
}

type IdentityService struct {
	voteRepo ports.VoteRepository
	secret   []byte
	clock    ports.Clock
	logger   *slog.Logger
}

func NewIdentityService(voteRepo ports.VoteRepository, secret string, clock ports.Clock, logger *slog.Logger) *IdentityService {
	logger = resolveLogger(logger)
	if secret == "" {
		logger.Warn("identity secret not set, tokens are signed with an empty key")
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &IdentityService{
		voteRepo: voteRepo,
		secret:   []byte(secret),
		clock:    clock,
		logger:   logger,
	}
}

// Issue returns a new voter identity. The token's cat claim is the creation
// timestamp the similarity heuristic compares.
func (s *IdentityService) Issue() (string, error) {
	now := s.clock.Now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
		CreatedAtMillis: now.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

func (s *IdentityService) Validate(token string) error {
	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return domain.ErrInvalidToken
	}
	return nil
}

// Similarity scores how likely two identities belong to the same browser,
// from the distance between their creation timestamps. Tokens without a
// readable timestamp score 0.
func (s *IdentityService) Similarity(a, b string) float64 {
	issuedA, okA := issuedAt(a)
	issuedB, okB := issuedAt(b)
	if !okA || !okB {
		return 0.0
	}

	diff := issuedA.Sub(issuedB)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < time.Minute:
		return 0.9
	case diff < 5*time.Minute:
		return 0.7
	case diff < time.Hour:
		return 0.5
	default:
		return 0.1
	}
}

// Suspicious compares identity against every other identity that already
// voted in the poll.
func (s *IdentityService) Suspicious(ctx context.Context, pollID uuid.UUID, identity string) (bool, error) {
	voters, err := s.voteRepo.ListVoterIdentities(ctx, pollID)
	if err != nil {
		return false, fmt.Errorf("failed to list voters: %w", err)
	}

	for _, other := range voters {
		if other == identity {
			continue
		}
		if score := s.Similarity(identity, other); score > SuspicionThreshold {
			s.logger.Info("similar identity already voted",
				"poll_id", pollID,
				"score", score,
			)
			return true, nil
		}
	}
	return false, nil
}

func issuedAt(token string) (time.Time, bool) {
	claims := &identityClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	return claims.createdAt()
}
