package server

import (
	"log/slog"
	"net/http"

	"driver-compare/internal/handlers"
	"driver-compare/internal/metrics"
	"driver-compare/internal/services"
)

type Server struct {
	dashboard    *services.Dashboard
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
	metrics      *metrics.Recorder
}

func NewServer(dashboard *services.Dashboard, recorder *metrics.Recorder, upload handlers.UploadOptions, logger *slog.Logger) *Server {
	s := &Server{
		dashboard:    dashboard,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(dashboard, upload, logger),
		sseHandlers:  handlers.NewSSEHandlers(dashboard, logger),
		pageHandlers: handlers.NewPageHandlers(dashboard, upload, logger),
		metrics:      recorder,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("POST /upload", s.pageHandlers.HandleUpload)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// REST API endpoints
	s.mux.HandleFunc("POST /api/workbook", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("POST /api/comparison", s.apiHandlers.HandleComparison)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/comparison", s.sseHandlers.HandleComparison)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
