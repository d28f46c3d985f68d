package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server owns the router plus the background workers behind it: the
// websocket broadcaster and the rate limiter cleanup.
type Server struct {
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	logger      *slog.Logger

	// BroadcastInterval is how often /ws clients receive a report.
	BroadcastInterval time.Duration
}

// New builds the server. Nothing runs until Serve is called.
func New(cfg RouterConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = DefaultCORSOrigins
	}

	s := &Server{
		router:            NewRouter(cfg),
		hub:               NewHub(cfg.Diagnostics, cfg.Logger, originChecker(cfg.CORSOrigins)),
		rateLimiter:       cfg.RateLimiter,
		logger:            cfg.Logger,
		BroadcastInterval: 250 * time.Millisecond,
	}
	s.router.Get("/ws", s.hub.HandleWebSocket)
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	workers, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go s.hub.Run(workers, s.BroadcastInterval)
	go s.cleanupLoop(workers)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopWorkers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cleanupLoop(ctx context.Context) {
	if s.rateLimiter.config.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.rateLimiter.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup()
		}
	}
}

// originChecker accepts websocket origins matching the CORS patterns, where
// a trailing "*" matches any suffix. Requests without Origin are accepted
// since they do not come from a browser.
func originChecker(patterns []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, pattern := range patterns {
			if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
				if strings.HasPrefix(origin, prefix) {
					return true
				}
			} else if origin == pattern {
				return true
			}
		}
		return false
	}
}
