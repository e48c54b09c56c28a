package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const liveWriteTimeout = 5 * time.Second

// LiveHandler streams bus events to websocket observers. Each connection owns
// one subscription, closed when the connection ends.
type LiveHandler struct {
	bus            ports.EventBus
	stats          ports.StatsService
	originPatterns []string
	logger         *slog.Logger
}

func NewLiveHandler(bus ports.EventBus, stats ports.StatsService, originPatterns []string, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		bus:            bus,
		stats:          stats,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// PollLive streams the events of one poll and its statistics. The first
// message is a stats snapshot so observers start from current state.
func (h *LiveHandler) PollLive(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	snapshot, err := h.stats.StatsForPoll(r.Context(), pollID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		return
	}

	pollTopic := domain.TopicPoll(pollID)
	sub := h.bus.Subscribe(pollTopic, domain.TopicPollStats(pollID))
	h.publishViewers(r.Context(), pollID)
	defer func() {
		sub.Close()
		h.publishViewers(context.WithoutCancel(r.Context()), pollID)
	}()

	first := domain.NewEvent(domain.EventStatsUpdated, pollID, time.Now(), snapshot)
	h.stream(r.Context(), conn, sub, &first)
}

// GlobalLive streams poll lifecycle events and vote activity across all polls.
func (h *LiveHandler) GlobalLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		return
	}

	sub := h.bus.Subscribe(domain.TopicAllPolls, domain.TopicActivity)
	defer sub.Close()

	h.stream(r.Context(), conn, sub, nil)
}

func (h *LiveHandler) stream(ctx context.Context, conn *websocket.Conn, sub ports.Subscription, first *domain.Event) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if first != nil {
		if err := h.write(ctx, conn, *first); err != nil {
			conn.Close(websocket.StatusNormalClosure, "write_failed")
			return
		}
	}

	// Observers only listen; reading detects the peer going away.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if err := h.write(ctx, conn, event); err != nil {
				h.logger.Debug("live write failed", "error", err)
				conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (h *LiveHandler) write(ctx context.Context, conn *websocket.Conn, event domain.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}

func (h *LiveHandler) publishViewers(ctx context.Context, pollID uuid.UUID) {
	topic := domain.TopicPoll(pollID)
	viewers := h.bus.SubscriberCount(topic)
	h.bus.Publish(ctx, topic, domain.NewEvent(domain.EventViewerCount, pollID, time.Now(),
		domain.ViewerCountPayload{Viewers: viewers}))
}

func (h *LiveHandler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	if len(h.originPatterns) > 0 {
		opts.OriginPatterns = h.originPatterns
	}
	return opts
}
