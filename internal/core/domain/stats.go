package domain

import "github.com/google/uuid"

const (
	DistributionNoVotes          = "No votes yet"
	DistributionUnanimous        = "Unanimous"
	DistributionClearLeader      = "Clear leader"
	DistributionStrongPreference = "Strong preference"
	DistributionCompetitive      = "Competitive"
)

// PollStats is the full statistics view of a single poll.
type PollStats struct {
	PollID                uuid.UUID     `json:"poll_id"`
	TotalVotes            int64         `json:"total_votes"`
	MaxVotes              int64         `json:"max_votes"`
	MinVotes              int64         `json:"min_votes"`
	AverageVotesPerOption float64       `json:"average_votes_per_option"`
	LeadingOptionID       *uuid.UUID    `json:"leading_option_id"`
	VoteDistribution      string        `json:"vote_distribution"`
	Options               []OptionStats `json:"options"`
}

type OptionStats struct {
	OptionID   uuid.UUID `json:"option_id"`
	Text       string    `json:"text"`
	VotesCount int64     `json:"votes_count"`
	Percentage float64   `json:"percentage"`
	VoteShare  float64   `json:"vote_share"`
	Rank       int       `json:"rank"`
}

// PollSummary is the cheap listing view: totals and per-option percentages
// without ranks or labels.
type PollSummary struct {
	PollID     uuid.UUID     `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Options    []OptionShare `json:"options"`
}

type OptionShare struct {
	OptionID   uuid.UUID `json:"option_id"`
	VotesCount int64     `json:"votes_count"`
	Percentage float64   `json:"percentage"`
}

// PollListing pairs a poll with its summary for list views.
type PollListing struct {
	Poll  *Poll       `json:"poll"`
	Stats PollSummary `json:"stats"`
}
