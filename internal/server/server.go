// Package server provides the HTTP server for the mudra recorder.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir      string
	DefaultGesture string
	Session        *collect.Session
	Store          *store.Store
	Exporter       api.Exporter
	Sinks          *sink.Manager
	Dispatcher     *sink.Dispatcher
	Camera         capture.Camera
	Landmarks      LandmarkSource
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config     Config
	mux        *http.ServeMux
	start      time.Time
	detections *DetectionsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session, s.config.DefaultGesture)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)

		s.detections = NewDetectionsHandler(s.config.Session)
		s.mux.Handle("/api/detections", s.detections)
	}

	if s.config.Store != nil {
		exportHandler := api.NewExportHandler(s.config.Store, s.config.Exporter)
		s.mux.Handle("/api/exports", exportHandler)
		s.mux.Handle("/api/exports/", exportHandler)
	}

	if s.config.Sinks != nil && s.config.Dispatcher != nil {
		sinkHandler := api.NewSinkHandler(s.config.Sinks, s.config.Dispatcher)
		s.mux.Handle("/api/sinks", sinkHandler)
		s.mux.Handle("/api/sinks/", sinkHandler)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera, s.config.Landmarks))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Detections returns the detection WebSocket handler, or nil when no
// session is configured.
func (s *Server) Detections() *DetectionsHandler {
	return s.detections
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		response["session"] = s.config.Session.State()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
