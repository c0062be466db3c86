// Package api exposes the HTTP surface: the Tavily-compatible search
// endpoint, YouTube transcript lookup and a health probe.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "metaseek"

// Server represents the API server
type Server struct {
	handler *Handler
	port    string
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(handler *Handler, port string, logger *zap.Logger) *Server {
	return &Server{
		handler: handler,
		port:    port,
		logger:  logger,
	}
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("starting api server", zap.String("port", s.port))
	return http.ListenAndServe(":"+s.port, s.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Register API endpoints
	mux.HandleFunc("/search", s.handler.SearchHandler)
	mux.HandleFunc("/transcript", s.handler.TranscriptHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": ServiceName,
		})
	})

	return mux
}
