package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
)

// Server wraps the HTTP server with routing and lifecycle management.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New creates the API server with all routes registered.
func New(cfg config.Config, handler *Handler, logger *slog.Logger) *Server {
	router := NewRouter(handler, logger)

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter creates and configures the HTTP router.
func NewRouter(handler *Handler, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware(logger))
	r.Use(corsMiddleware)

	r.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/books", handler.HandleListBooks).Methods("GET")
	api.HandleFunc("/books/{id}", handler.HandleGetBook).Methods("GET")
	api.HandleFunc("/books/{id}", handler.HandleUpdateBook).Methods("PUT")
	api.HandleFunc("/books/{id}", handler.HandleDeleteBook).Methods("DELETE")
	api.HandleFunc("/books/{id}/cover", handler.HandleGetCover).Methods("GET")
	api.HandleFunc("/categories", handler.HandleListCategories).Methods("GET")
	api.HandleFunc("/search", handler.HandleSearch).Methods("GET")
	api.HandleFunc("/ingest", handler.HandleTriggerIngest).Methods("POST", "OPTIONS")
	api.HandleFunc("/ingest/status", handler.HandleIngestStatus).Methods("GET")
	api.HandleFunc("/stats", handler.HandleStats).Methods("GET")

	return r
}

// Start begins serving and blocks until shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.http.Shutdown(ctx)
}
