package domain

import "github.com/google/uuid"

// VoteCount is one row of the grouped (poll, option) vote count.
type VoteCount struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	Count    int64
}

// TallyDrift describes an option whose cached counter disagrees with the
// number of vote rows referencing it.
type TallyDrift struct {
	PollID        uuid.UUID `json:"poll_id"`
	OptionID      uuid.UUID `json:"option_id"`
	CachedCount   int64     `json:"cached_count"`
	RecordedCount int64     `json:"recorded_count"`
}
