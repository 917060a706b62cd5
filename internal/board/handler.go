package board

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/kitchenboard/pkg/enums/kitchenstatus"
	"github.com/appetiteclub/kitchenboard/pkg/enums/station"
	"github.com/appetiteclub/kitchenboard/pkg/event"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Viewer exposes the board read-only, together with the feed health.
type Viewer interface {
	View() View
	Health() Health
}

// Streamer hands out live board updates.
type Streamer interface {
	Subscribe(subscriberID string) <-chan Update
	Unsubscribe(subscriberID string)
}

type HandlerDeps struct {
	Viewer   Viewer
	Streamer Streamer
}

type Handler struct {
	viewer      Viewer
	streamer    Streamer
	keepalive   time.Duration
	streamLimit int
	logger      apt.Logger
	tlm         *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		viewer:      deps.Viewer,
		streamer:    deps.Streamer,
		keepalive:   30 * time.Second,
		streamLimit: 30,
		logger:      logger,
		tlm:         telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/board", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Get("/health", h.GetHealth)
		r.Get("/tickets/{id}", h.GetTicket)
		r.Get("/availability", h.GetAvailability)
		r.With(streamRateLimit(h.streamLimit, time.Minute)).Get("/stream", h.Stream)
	})
	r.Handle("/metrics", promhttp.Handler())
}

// streamRateLimit caps new stream connections per client IP. Screens that
// reconnect in a tight loop get a 429 with Retry-After instead of a new
// subscription.
func streamRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			apt.RespondError(w, http.StatusTooManyRequests, "Too many stream connections")
		}),
	)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetBoard")
	defer finish()

	if h.viewer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Board not available")
		return
	}

	st, err := station.Parse(r.URL.Query().Get("station"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid station")
		return
	}

	var statusName string
	if v := r.URL.Query().Get("status"); v != "" {
		status := kitchenstatus.ByName(v)
		if status == nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		statusName = status.Code()
	}

	view := h.viewer.View()
	if !st.IsZero() || statusName != "" {
		view.Tickets = filterTickets(view.Tickets, st, statusName)
	}

	apt.Respond(w, http.StatusOK, view, nil)
}

func filterTickets(tickets []event.KitchenTicket, st station.Station, statusName string) []event.KitchenTicket {
	result := make([]event.KitchenTicket, 0, len(tickets))
	for _, t := range tickets {
		if !st.Matches(t.Station) {
			continue
		}
		if statusName != "" && t.Status != statusName {
			continue
		}
		result = append(result, t)
	}
	return result
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetHealth")
	defer finish()

	if h.viewer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Board not available")
		return
	}

	health := h.viewer.Health()
	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"source":           health.Source,
		"generation":       health.Generation,
		"awaitingSnapshot": health.AwaitingSnapshot,
		"degraded":         health.Degraded,
		"syncedAt":         health.SyncedAt,
		"stale":            health.Stale(),
	}, nil)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTicket")
	defer finish()
	log := h.log(r)

	if h.viewer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Board not available")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	for _, t := range h.viewer.View().Tickets {
		if t.ID == id {
			apt.Respond(w, http.StatusOK, t, nil)
			return
		}
	}

	log.Debug("ticket not on board", "ticket_id", id)
	apt.RespondError(w, http.StatusNotFound, "Ticket not found")
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetAvailability")
	defer finish()

	if h.viewer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Board not available")
		return
	}

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"availability": h.viewer.View().Availability,
	}, nil)
}

// Stream serves the board as Server-Sent Events: a BOARD_SNAPSHOT first,
// then every applied event in the same wire format.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.viewer == nil || h.streamer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Board stream not available")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	log := h.log(r).With("subscriber_id", subscriberID)
	log.Info("new SSE connection")

	updates := h.streamer.Subscribe(subscriberID)
	defer h.streamer.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")

	view := h.viewer.View()
	if err := sendEvent(w, event.BoardSnapshot{Items: view.Tickets, ServerTime: view.ServerTime}); err != nil {
		log.Error("cannot send initial snapshot", "error", err)
		return
	}
	for id, available := range view.Availability {
		if err := sendEvent(w, event.MenuAvailability{MenuItemID: id, Available: available}); err != nil {
			log.Error("cannot send availability", "error", err)
			return
		}
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case u, ok := <-updates:
			if !ok {
				// Evicted or shutting down; the client reconnects for a new snapshot.
				log.Info("board update channel closed")
				return
			}
			if err := sendEvent(w, u.Event); err != nil {
				log.Error("cannot send board update", "error", err)
			}
		}
	}
}

func sendEvent(w http.ResponseWriter, evt event.KitchenSourceEvent) error {
	data, err := event.Encode(evt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", evt.Type())
	fmt.Fprintf(w, "data: %s\n\n", data)
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
