package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	logger  *slog.Logger
}

func NewVoteHandler(service ports.VoteService, logger *slog.Logger) *VoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteHandler{
		service: service,
		logger:  logger,
	}
}

type voteRequest struct {
	OptionID uuid.UUID `json:"option_id"`
}

type voteResponse struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	OptionID  uuid.UUID `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteOnPoll godoc
// @Summary      Casts the caller's vote
// @Description  Rejections: 403 poll_expired, 409 already_voted, 403 suspicious_activity.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      403
// @Failure      404
// @Failure      409
// @Router       /polls/{id}/votes [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "missing voter identity")
		return
	}

	vote, err := h.service.CastVote(r.Context(), ports.VoteInput{
		PollID:        pollID,
		OptionID:      req.OptionID,
		VoterIdentity: identity,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, voteResponse{
		ID:        vote.ID,
		PollID:    vote.PollID,
		OptionID:  vote.OptionID,
		CreatedAt: vote.CreatedAt,
	})
}

// GetMyVote godoc
// @Summary      Returns the caller's vote on a poll
// @Tags         votes
// @Produce      json
// @Success      200
// @Failure      404
// @Router       /polls/{id}/my-vote [get]
func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "missing voter identity")
		return
	}

	vote, err := h.service.MyVote(r.Context(), pollID, identity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, voteResponse{
		ID:        vote.ID,
		PollID:    vote.PollID,
		OptionID:  vote.OptionID,
		CreatedAt: vote.CreatedAt,
	})
}
