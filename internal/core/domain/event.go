package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicAllPolls = "polls:all"
	TopicActivity = "polls:activity"
)

// TopicPoll carries every event about one poll.
func TopicPoll(id uuid.UUID) string {
	return "poll:" + id.String()
}

// TopicPollStats carries statistics payloads only.
func TopicPollStats(id uuid.UUID) string {
	return "poll_stats:" + id.String()
}

type EventType string

const (
	EventPollCreated  EventType = "poll_created"
	EventPollUpdated  EventType = "poll_updated"
	EventPollDeleted  EventType = "poll_deleted"
	EventVoteCast     EventType = "vote_cast"
	EventStatsUpdated EventType = "stats_updated"
	EventVoteActivity EventType = "vote_activity"
	EventViewerCount  EventType = "viewer_count"
)

// Event is a best-effort notification. Receivers should treat it as a hint
// to re-fetch state, not as a delta.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	PollID     uuid.UUID `json:"poll_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

func NewEvent(eventType EventType, pollID uuid.UUID, occurredAt time.Time, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		PollID:     pollID,
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}
}

type VoteCastPayload struct {
	VoteID   uuid.UUID `json:"vote_id"`
	OptionID uuid.UUID `json:"option_id"`
}

type ViewerCountPayload struct {
	Viewers int `json:"viewers"`
}
