package domain

import "errors"

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrInvalidPollID  = errors.New("invalid poll id")
	ErrOptionNotFound = errors.New("option not found for this poll")
	ErrVoteNotFound   = errors.New("identity did not vote on this poll")
	ErrInvalidToken   = errors.New("invalid identity token")
	ErrInternal       = errors.New("internal server error")
)

// Rejection is an expected, user-facing refusal to admit a vote. It is
// returned as an error value so callers can match it with errors.Is or
// recover the code with errors.As.
type Rejection string

const (
	RejectionPollExpired        Rejection = "poll_expired"
	RejectionAlreadyVoted       Rejection = "already_voted"
	RejectionSuspiciousActivity Rejection = "suspicious_activity"
)

var (
	ErrPollExpired        error = RejectionPollExpired
	ErrAlreadyVoted       error = RejectionAlreadyVoted
	ErrSuspiciousActivity error = RejectionSuspiciousActivity
)

func (r Rejection) Error() string {
	return r.Message()
}

// Message is the stable text shown to voters.
func (r Rejection) Message() string {
	switch r {
	case RejectionPollExpired:
		return "this poll is closed"
	case RejectionAlreadyVoted:
		return "you already voted in this poll"
	case RejectionSuspiciousActivity:
		return "your vote could not be accepted right now, please try again later"
	default:
		return string(r)
	}
}

// AsRejection reports whether err is an admission rejection.
func AsRejection(err error) (Rejection, bool) {
	var r Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return "", false
}
