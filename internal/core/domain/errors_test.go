package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectionMatching(t *testing.T) {
	wrapped := fmt.Errorf("cast vote: %w", ErrAlreadyVoted)

	assert.True(t, errors.Is(wrapped, ErrAlreadyVoted))
	assert.False(t, errors.Is(wrapped, ErrPollExpired))

	r, ok := AsRejection(wrapped)
	assert.True(t, ok)
	assert.Equal(t, RejectionAlreadyVoted, r)
	assert.Equal(t, "you already voted in this poll", r.Message())

	_, ok = AsRejection(ErrPollNotFound)
	assert.False(t, ok)
}
