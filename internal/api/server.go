// Package api serves the tool-call HTTP surface and the live scoreboard
// websocket feed.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nflstats/internal/tools"

	"github.com/gorilla/mux"
)

// HealthFunc reports store health
type HealthFunc func(ctx context.Context) error

// Server represents the HTTP API server
type Server struct {
	port    string
	server  *http.Server
	router  *mux.Router
	handler *Handler
	hub     *Hub
}

// NewServer creates the API server. health may be nil.
func NewServer(port string, registry *tools.Registry, hub *Hub, health HealthFunc) *Server {
	handler := NewHandler(registry, hub, health)

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.HandleFunc("/ws/live", hub.ServeWS).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tools", handler.ListTools).Methods("GET")
	api.HandleFunc("/tools/{name}", handler.CallTool).Methods("POST")

	return &Server{
		port:    port,
		router:  router,
		handler: handler,
		hub:     hub,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
