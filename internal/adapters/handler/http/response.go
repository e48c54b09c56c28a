package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type errorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeServiceError maps core errors to HTTP responses. Anything it does not
// recognize is logged and reported as a generic failure.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validation domain.ValidationErrors
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: "some fields are invalid",
			Fields:  validation,
		})
		return
	}

	if rejection, ok := domain.AsRejection(err); ok {
		status := http.StatusForbidden
		if rejection == domain.RejectionAlreadyVoted {
			status = http.StatusConflict
		}
		writeError(w, status, string(rejection), rejection.Message())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidPollID):
		writeError(w, http.StatusBadRequest, "invalid_poll_id", err.Error())
	case errors.Is(err, domain.ErrPollNotFound):
		writeError(w, http.StatusNotFound, "poll_not_found", domain.ErrPollNotFound.Error())
	case errors.Is(err, domain.ErrOptionNotFound):
		writeError(w, http.StatusNotFound, "option_not_found", domain.ErrOptionNotFound.Error())
	case errors.Is(err, domain.ErrVoteNotFound):
		writeError(w, http.StatusNotFound, "vote_not_found", domain.ErrVoteNotFound.Error())
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", domain.ErrInternal.Error())
	}
}
