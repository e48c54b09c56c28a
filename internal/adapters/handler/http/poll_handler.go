package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
	stats   ports.StatsService
	logger  *slog.Logger
}

func NewPollHandler(service ports.PollService, stats ports.StatsService, logger *slog.Logger) *PollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollHandler{
		service: service,
		stats:   stats,
		logger:  logger,
	}
}

type createPollRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Options     []string   `json:"options"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Category    *string    `json:"category"`
	Tags        []string   `json:"tags"`
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      422
// @Router       /polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	input := ports.CreatePollInput{
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		ExpiresAt:   req.ExpiresAt,
		Category:    categoryPtr(req.Category),
		Tags:        req.Tags,
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, poll)
}

// ListPolls godoc
// @Summary      Lists polls with vote totals
// @Tags         polls
// @Produce      json
// @Param        q         query  string  false  "text search"
// @Param        category  query  string  false  "category"
// @Param        tag       query  string  false  "tag"
// @Param        status    query  string  false  "active or expired"
// @Param        sort      query  string  false  "newest, oldest, most_votes or ending_soon"
// @Param        page      query  int     false  "page, starting at 1"
// @Success      200
// @Router       /polls [get]
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	input := ports.ListPollsInput{
		Page:    page,
		Filters: domain.ParseFilters(q.Get("q"), q.Get("category"), q.Get("tag"), q.Get("status"), q.Get("sort")),
	}

	listings, err := h.stats.StatsForPollListing(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

// updatePollRequest keeps expires_at and category raw so an explicit null
// can be told apart from an absent field.
type updatePollRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Options     []string        `json:"options"`
	ExpiresAt   json.RawMessage `json:"expires_at"`
	Category    json.RawMessage `json:"category"`
	Tags        []string        `json:"tags"`
}

// UpdatePoll godoc
// @Summary      Updates a poll
// @Description  Sending options replaces the whole option set and deletes every vote of the poll.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      404
// @Failure      422
// @Router       /polls/{id} [patch]
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	input := ports.UpdatePollInput{
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		Tags:        req.Tags,
	}

	if len(req.ExpiresAt) > 0 {
		if isNull(req.ExpiresAt) {
			input.ClearExpiresAt = true
		} else {
			var expiresAt time.Time
			if err := json.Unmarshal(req.ExpiresAt, &expiresAt); err != nil {
				writeServiceError(w, r, h.logger, domain.ValidationErrors{"expires_at": {"is invalid"}})
				return
			}
			input.ExpiresAt = &expiresAt
		}
	}
	if len(req.Category) > 0 {
		if isNull(req.Category) {
			input.ClearCategory = true
		} else {
			var category string
			if err := json.Unmarshal(req.Category, &category); err != nil {
				writeServiceError(w, r, h.logger, domain.ValidationErrors{"category": {"is invalid"}})
				return
			}
			input.Category = categoryPtr(&category)
		}
	}

	poll, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	poll, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

// GetStats godoc
// @Summary      Full statistics of a poll
// @Tags         polls
// @Produce      json
// @Success      200
// @Failure      404
// @Router       /polls/{id}/stats [get]
func (h *PollHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.StatsForPoll(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func pollIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_poll_id", domain.ErrInvalidPollID.Error())
		return uuid.Nil, false
	}
	return id, true
}

func categoryPtr(raw *string) *domain.Category {
	if raw == nil || *raw == "" {
		return nil
	}
	c := domain.Category(*raw)
	return &c
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
