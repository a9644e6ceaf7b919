// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/daemon"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/models"
)

// Scheduler is the daemon surface exposed through the admin API.
type Scheduler interface {
	Tick(ctx context.Context, ignoreCadence bool)
	Status(ctx context.Context) ([]daemon.ChannelStatus, error)
	Pause(ctx context.Context, channelID string) error
	Resume(ctx context.Context, channelID string) error
}

// Reporter summarizes a channel's learning state for status output.
type Reporter interface {
	Report(ctx context.Context, channelID string) brain.ChannelReport
}

// AdvisoryLister exposes the monitor's recorded recovery advisories.
// Satisfied by store.Store.
type AdvisoryLister interface {
	ListAdvisories(ctx context.Context, channelID string, limit int) ([]*models.Advisory, error)
}

// Server is the local admin HTTP server. It binds to loopback by default
// and carries no authentication; exposing it beyond localhost is the
// operator's problem.
type Server struct {
	cfg        config.AdminConfig
	sched      Scheduler
	reporter   Reporter
	advisories AdvisoryLister

	// shutdown requests a graceful process exit. Wired to the supervisor's
	// root cancel by the daemon binary.
	shutdown func()

	srv *http.Server
}

// NewServer builds the admin server.
func NewServer(cfg config.AdminConfig, sched Scheduler, reporter Reporter, advisories AdvisoryLister, shutdown func()) *Server {
	s := &Server{
		cfg:        cfg,
		sched:      sched,
		reporter:   reporter,
		advisories: advisories,
		shutdown:   shutdown,
	}
	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes assembles the chi router with the global middleware stack.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	rateLimit := s.cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit, time.Minute))
		r.Use(requestMetrics)

		r.Get("/status", s.handleStatus)
		r.Post("/tick", s.handleTick)
		r.Post("/channels/{id}/pause", s.handlePause)
		r.Post("/channels/{id}/resume", s.handleResume)
		r.Post("/shutdown", s.handleShutdown)
	})
	return r
}

// requestMetrics records per-route request counts by status code.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

// Serve runs the admin server until the context is cancelled. Implements
// suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Logger().Info().Str("addr", s.cfg.ListenAddr).Msg("admin api listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) String() string { return "admin-api" }
