package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/domain"
	apimw "github.com/hamed0406/mqttprobe/internal/httpapi/middleware"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

const (
	defaultHistory = 50
	maxHistory     = 1000
)

// Prober runs one immediate probe and stores its heartbeat.
// *scheduler.Rechecker implements it.
type Prober interface {
	CheckNow(ctx context.Context, m *domain.Monitor) (*domain.Heartbeat, error)
}

type Server struct {
	Logger     *zap.Logger
	Monitors   repo.MonitorStore
	Heartbeats repo.HeartbeatStore
	Prober     Prober
	Metrics    http.Handler // optional, served on /metrics
}

func NewServer(l *zap.Logger, ms repo.MonitorStore, hs repo.HeartbeatStore, p Prober, metrics http.Handler) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Monitors: ms, Heartbeats: hs, Prober: p, Metrics: metrics}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(corsHandler(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst), apimw.RequireAny(keys))
		r.Get("/api/monitors", s.handleListMonitors)
		r.Get("/api/monitors/{id}", s.handleGetMonitor)
		r.Get("/api/monitors/{id}/heartbeats", s.handleHistory)
		r.Get("/api/heartbeats/latest", s.handleLatest)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(admRPM, admBurst), apimw.RequireAdmin(keys))
		r.Post("/api/monitors", s.handleAddMonitor)
		r.Post("/api/monitors/{id}/check", s.handleCheckMonitor)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}

// addPayload mirrors domain.Monitor but accepts the password, which the
// monitor never serializes.
type addPayload struct {
	Name           string           `json:"name"`
	Hostname       string           `json:"hostname"`
	Port           int              `json:"port"`
	Username       string           `json:"username"`
	Password       string           `json:"password"`
	Topic          string           `json:"topic"`
	WebsocketPath  string           `json:"websocket_path"`
	Interval       int              `json:"interval"`
	CheckType      domain.CheckType `json:"check_type"`
	SuccessMessage string           `json:"success_message"`
	JSONQuery      string           `json:"json_query"`
	ExpectedValue  string           `json:"expected_value"`
}

func (p addPayload) monitor() *domain.Monitor {
	return &domain.Monitor{
		Name:           p.Name,
		Hostname:       p.Hostname,
		Port:           p.Port,
		Username:       p.Username,
		Password:       p.Password,
		Topic:          p.Topic,
		WebsocketPath:  p.WebsocketPath,
		Interval:       p.Interval,
		CheckType:      p.CheckType,
		SuccessMessage: p.SuccessMessage,
		JSONQuery:      p.JSONQuery,
		ExpectedValue:  p.ExpectedValue,
	}
}

type probeResponse struct {
	Monitor   *domain.Monitor   `json:"monitor"`
	Heartbeat *domain.Heartbeat `json:"heartbeat"`
}

func (s *Server) handleAddMonitor(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	m := p.monitor()
	if err := m.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Monitors.Add(r.Context(), m); err != nil {
		s.Logger.Error("add_monitor_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}

	// one synchronous probe for immediate feedback
	hb, err := s.Prober.CheckNow(r.Context(), m)
	if err != nil {
		s.Logger.Warn("add_monitor_probe_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("monitor_id", string(m.ID)),
		zap.String("hostname", m.Hostname),
		zap.String("topic", m.Topic),
	}
	if hb != nil {
		fields = append(fields, zap.String("status", string(hb.Status)), zap.Float64("latency_ms", hb.LatencyMS))
	}
	s.Logger.Info("added_monitor", fields...)

	writeJSON(w, http.StatusCreated, probeResponse{Monitor: m, Heartbeat: hb})
}

func (s *Server) handleCheckMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	hb, err := s.Prober.CheckNow(r.Context(), m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "check failed")
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{Monitor: m, Heartbeat: hb})
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Monitors.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if ms == nil {
		ms = []*domain.Monitor{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistory)
	}
	hbs, err := s.Heartbeats.History(r.Context(), m.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history error")
		return
	}
	if hbs == nil {
		hbs = []domain.Heartbeat{}
	}
	writeJSON(w, http.StatusOK, hbs)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Heartbeats.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "latest error")
		return
	}
	if rows == nil {
		rows = []repo.LatestRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*domain.Monitor, bool) {
	id := domain.MonitorID(chi.URLParam(r, "id"))
	m, err := s.Monitors.Get(r.Context(), id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "monitor not found")
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "lookup error")
		return nil, false
	}
	return m, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
