package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/aicommandcenter/aicc/pkg/ollama"
	"github.com/aicommandcenter/aicc/pkg/routing"
	"github.com/aicommandcenter/aicc/pkg/tail"
	"github.com/aicommandcenter/aicc/pkg/types"
	"github.com/aicommandcenter/aicc/server/internal/alerts"
	"github.com/aicommandcenter/aicc/server/internal/store"
)

const (
	// DefaultLogLines is returned when ?lines is absent.
	DefaultLogLines = 100
	// MaxLogLines caps ?lines.
	MaxLogLines = 5000

	maxBodyBytes = 1 << 20
)

// HealthSource probes services on demand.
type HealthSource interface {
	GetAll(ctx context.Context) types.AggregateHealth
	Probe(ctx context.Context, id types.ServiceID) (types.HealthStatus, error)
}

// ModelManager manages the model runner inventory.
type ModelManager interface {
	List(ctx context.Context) ([]ollama.Model, error)
	Pull(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// AlertSource lists current alerts.
type AlertSource interface {
	Active() []*alerts.Alert
}

// Deps are the collaborators the API reads from. Alerts may be nil; nil
// Origins allows no cross-origin browser callers.
type Deps struct {
	Health  HealthSource
	Store   *store.Store
	Routing *routing.Store
	LogsDir string
	Models  ModelManager
	Alerts  AlertSource
	Origins *Origins
}

// Handler serves the /api/v1 endpoints.
type Handler struct {
	deps Deps
	now  func() time.Time
}

// New creates the router with every /api/v1 route registered. Callers may
// mount further handlers on the returned router.
func New(d Deps) *chi.Mux {
	h := &Handler{deps: d, now: time.Now}

	origins := d.Origins
	if origins == nil {
		origins = NewOrigins(nil)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool { return origins.Allowed(origin) },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:  []string{"Content-Type"},
		MaxAge:          300,
	}))
	r.Use(origins.guard)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/health/{service}", h.serviceHealth)
		r.Get("/snapshot", h.snapshot)
		r.Get("/logs/{service}", h.logs)

		r.Get("/config", h.getConfig)
		r.Put("/config", h.putConfig)
		r.Post("/config/validate", h.validateConfig)
		r.Get("/policy", h.getPolicy)
		r.Put("/policy", h.putPolicy)

		r.Get("/models", h.listModels)
		r.Post("/models/pull", h.pullModel)
		r.Delete("/models/{name}", h.removeModel)

		r.Get("/alerts", h.alerts)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// --- health -----------------------------------------------------------------

// health returns GET /api/v1/health: a fresh probe of every service.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.deps.Health.GetAll(r.Context()))
}

func (h *Handler) serviceHealth(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseServiceID(chi.URLParam(r, "service"))
	if err != nil {
		jsonErr(w, http.StatusNotFound, err.Error())
		return
	}
	st, err := h.deps.Health.Probe(r.Context(), id)
	if err != nil {
		jsonErr(w, http.StatusNotFound, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ServiceHealthResponse{ID: id, Status: st})
}

// snapshot returns GET /api/v1/snapshot: the last polled status of every
// live service.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.deps.Store.List(), h.now()))
}

// --- logs -------------------------------------------------------------------

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	lines := DefaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("lines must be a positive integer, got %q", raw))
			return
		}
		lines = min(n, MaxLogLines)
	}

	path, err := tail.LogPath(h.deps.LogsDir, types.ServiceID(service))
	if err != nil {
		jsonErr(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := tail.Tail(path, lines)
	if err != nil {
		slog.Warn("api: tail failed", "service", service, "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, LogsResponse{Service: service, Path: path, Lines: out})
}

// --- routing documents ------------------------------------------------------

func (h *Handler) getConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := h.deps.Routing.LoadConfig()
	if err != nil {
		routingErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, cfg)
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg routing.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := h.deps.Routing.SaveConfig(cfg); err != nil {
		routingErr(w, err)
		return
	}
	slog.Info("api: routing config saved", "models", len(cfg.ModelList))
	jsonResp(w, http.StatusOK, SaveResponse{Saved: true, Path: h.deps.Routing.ConfigPath})
}

func (h *Handler) validateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg routing.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	jsonResp(w, http.StatusOK, routing.Validate(cfg))
}

func (h *Handler) getPolicy(w http.ResponseWriter, _ *http.Request) {
	p, err := h.deps.Routing.LoadPolicy()
	if err != nil {
		routingErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, p)
}

func (h *Handler) putPolicy(w http.ResponseWriter, r *http.Request) {
	var p routing.Policy
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Routing.SavePolicy(p); err != nil {
		routingErr(w, err)
		return
	}
	slog.Info("api: routing policy saved", "version", p.Version)
	jsonResp(w, http.StatusOK, SaveResponse{Saved: true, Path: h.deps.Routing.PolicyPath})
}

// --- models -----------------------------------------------------------------

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.deps.Models.List(r.Context())
	if err != nil {
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, models)
}

func (h *Handler) pullModel(w http.ResponseWriter, r *http.Request) {
	var req PullRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		jsonErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.deps.Models.Pull(r.Context(), req.Name); err != nil {
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ModelActionResponse{Model: req.Name, Action: "pulled"})
}

func (h *Handler) removeModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.deps.Models.Remove(r.Context(), name); err != nil {
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ModelActionResponse{Model: name, Action: "removed"})
}

// --- alerts -----------------------------------------------------------------

func (h *Handler) alerts(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// routingErr maps routing store errors to status codes.
func routingErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, routing.ErrParse):
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("api: routing document", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
