// Package httpapi exposes the observability surface and mounts the
// websocket endpoint: /ws, /healthz, /stats, /events, /metrics.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/domain/model"
	wshandler "github.com/healis/realtime-service/internal/handler/ws"
	"github.com/healis/realtime-service/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRecentLimit = 50

type API struct {
	logger     *slog.Logger
	dispatcher service.Dispatcher
	monitor    *health.Monitor
}

func NewAPI(logger *slog.Logger, dispatcher service.Dispatcher, monitor *health.Monitor) *API {
	return &API{logger: logger, dispatcher: dispatcher, monitor: monitor}
}

// Router assembles the chi mux.
func NewRouter(api *API, ws *wshandler.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/ws", ws)
	r.Get("/healthz", api.HealthCheck)
	r.Get("/stats", api.ConnectionStats)
	r.Get("/events", api.RecentEvents)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// HealthCheck reports the derived tri-state signal. Unhealthy answers 503
// so load balancers stop routing new connections here.
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := a.monitor.Snapshot()
	code := http.StatusOK
	if snap.Status == model.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, snap)
}

func (a *API) ConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.dispatcher.Stats())
}

// RecentEvents returns the last n processed entries, oldest first.
func (a *API) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	type entryView struct {
		EventID    string         `json:"eventId"`
		Kind       string         `json:"kind"`
		Priority   string         `json:"priority"`
		OccurredAt int64          `json:"occurredAt"`
		Targets    int            `json:"targets"`
		Delivered  int            `json:"delivered"`
		DeadlineAt int64          `json:"deadlineAt,omitempty"`
		Payload    map[string]any `json:"payload"`
	}

	entries := a.dispatcher.RecentEvents(limit)
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			EventID:    e.Event.GetID(),
			Kind:       e.Event.GetKind().String(),
			Priority:   e.Event.GetPriority().String(),
			OccurredAt: e.Event.GetOccurredAt(),
			Targets:    e.Targets,
			Delivered:  e.Delivered,
			DeadlineAt: e.DeadlineAt,
			Payload:    e.Event.GetPayload(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
