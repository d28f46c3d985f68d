// Package server is the HTTP surface of a running simulation: Prometheus
// metrics, JSON status, msgpack snapshots, a top-down map and a websocket
// diagnostics feed. Handlers never touch the world directly; everything that
// reads storage goes through World.Do so it runs between two frames.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/snapshot"
	"github.com/plus3/bigspace/space"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// World runs fn on the simulation goroutine. bigspace.Pipeline implements it.
type World interface {
	Do(ctx context.Context, fn func(*ecs.Storage)) error
}

type RouterConfig struct {
	World       World
	Grid        *space.Settings
	Roles       *origin.Roles
	Diagnostics *origin.Diagnostics
	Logger      *slog.Logger

	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// RateLimiter guards /snapshot and /map.png. Nil builds one from
	// DefaultRateLimitConfig.
	RateLimiter *IPRateLimiter

	// CORSOrigins defaults to localhost on any port.
	CORSOrigins []string

	// RequestTimeout bounds how long a handler waits for the world.
	RequestTimeout time.Duration

	DisableLogging bool
}

var DefaultCORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

type handlers struct {
	cfg RouterConfig
}

// NewRouter builds the router. It starts no goroutines, so tests can serve
// it with httptest directly. The /ws route is added by Server.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = DefaultCORSOrigins
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	r := chi.NewRouter()
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &handlers{cfg: cfg}

	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", h.handleStatus)
	r.Post("/roles/{role}/{id}", h.handleAssignRole)

	r.Group(func(r chi.Router) {
		r.Use(cfg.RateLimiter.Middleware)
		r.Get("/snapshot", h.handleSnapshot)
		r.Get("/map.png", h.handleMap)
	})

	return r
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Diagnostics.Snapshot())
}

// do runs fn on the world with the request timeout and maps a timeout to 503.
func (h *handlers) do(w http.ResponseWriter, r *http.Request, fn func(*ecs.Storage)) bool {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	if err := h.cfg.World.Do(ctx, fn); err != nil {
		h.cfg.Logger.Warn("world request abandoned", "path", r.URL.Path, "error", err)
		http.Error(w, "simulation busy", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap *snapshot.Snapshot
	frame := h.cfg.Diagnostics.Snapshot().Frame
	if !h.do(w, r, func(storage *ecs.Storage) {
		snap = snapshot.Capture(h.cfg.Grid, storage, h.cfg.Roles, frame)
	}) {
		return
	}

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		h.cfg.Logger.Error("encode snapshot", "error", err)
		http.Error(w, "encode snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bigspace-%d.msgpack", frame))
	w.Write(buf.Bytes())
}

func (h *handlers) handleMap(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "size", 512, 64, 2048)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minExtent, err := queryFloat(r, "extent", h.cfg.Grid.CellEdge())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var points []MapPoint
	var collectErr error
	if !h.do(w, r, func(storage *ecs.Storage) {
		points, collectErr = CollectMapPoints(h.cfg.Grid, storage, h.cfg.Roles)
	}) {
		return
	}
	if collectErr != nil {
		http.Error(w, collectErr.Error(), http.StatusConflict)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, RenderMap(points, size, MapExtent(points, minExtent))); err != nil {
		http.Error(w, "encode map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (h *handlers) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var role origin.Role
	switch chi.URLParam(r, "role") {
	case "floating":
		role = origin.Floating
	case "physics":
		role = origin.Physics
	default:
		http.Error(w, "role must be floating or physics", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return
	}

	var assignErr error
	if !h.do(w, r, func(storage *ecs.Storage) {
		assignErr = h.cfg.Roles.Assign(storage, role, ecs.EntityId(id))
	}) {
		return
	}
	if assignErr != nil {
		status := http.StatusBadRequest
		if errors.Is(assignErr, origin.ErrOriginDeleted) {
			status = http.StatusNotFound
		}
		http.Error(w, assignErr.Error(), status)
		return
	}
	h.cfg.Logger.Info("origin role assigned", "role", role, "entity", id)
	writeJSON(w, http.StatusOK, map[string]any{"role": role.String(), "entity": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", key, lo, hi)
	}
	return v, nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) {
		return 0, fmt.Errorf("%s must be a positive number", key)
	}
	return v, nil
}
