// Package adminhttp exposes an engine's key states, counters and cache eviction over HTTP.
package adminhttp

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karupanerura/loading-engine/engine"
)

// Server serves the admin routes of one engine.
type Server struct {
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	router   *mux.Router
}

// NewServer creates an admin server for e.
// gatherer serves /metrics; nil means prometheus.DefaultGatherer.
func NewServer(e *engine.Engine, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		engine:   e,
		gatherer: gatherer,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/loads", s.handleLoads).Methods(http.MethodGet)
	s.router.HandleFunc("/loads/{key}", s.handleLoad).Methods(http.MethodGet)
	s.router.HandleFunc("/cache", s.handleClearCache).Methods(http.MethodDelete)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Router returns the handler serving every admin route.
func (s *Server) Router() http.Handler {
	return s.router
}
