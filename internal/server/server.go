// Package server wires the GraphQL schema and auxiliary routes into an HTTP
// server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nucleus/todo-api/internal/config"
	"github.com/nucleus/todo-api/internal/database"
)

// Route paths.
const (
	GraphQLPath    = "/graphql"
	HealthPath     = "/health"
	MetricsPath    = "/metrics"
	PlaygroundPath = "/playground"
)

const healthTimeout = 2 * time.Second

// Pinger is implemented by the database client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the todo-api over HTTP.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	schema  *graphql.Schema
	db      Pinger
	metrics *metrics
	handler http.Handler
}

// New assembles the routes. db may be nil in tests that do not exercise
// health or pool metrics.
func New(cfg *config.Config, log *zap.Logger, schema *graphql.Schema, db *database.Client) *Server {
	s := &Server{
		cfg:    cfg,
		log:    log,
		schema: schema,
	}
	if db != nil {
		s.db = db
		s.metrics = newMetrics(db.DB())
	} else {
		s.metrics = newMetrics(nil)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("root", http.HandlerFunc(rootHandler)))
	mux.Handle(GraphQLPath, s.instrument("graphql", s.graphqlHandler()))
	mux.Handle("GET "+HealthPath, s.instrument("health", http.HandlerFunc(s.healthHandler)))
	mux.Handle("GET "+MetricsPath, promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	if cfg.Playground {
		mux.Handle("GET "+PlaygroundPath, playground.Handler("todo-api", GraphQLPath))
	}

	s.handler = chain(mux, requestLogger(log), recoverPanics)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("todo-api listening",
			zap.String("addr", srv.Addr),
			zap.String("graphql", GraphQLPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// =============================================================================
// HANDLERS
// =============================================================================

func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorBody(msg string) map[string]any {
	return map[string]any{
		"errors": []map[string]string{{"message": msg}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
