package server

import (
	"log/slog"
	"net/http"

	"royalty-dashboard/internal/handlers"
	"royalty-dashboard/internal/middleware"
	"royalty-dashboard/internal/observability"
	"royalty-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	handler     http.Handler
	logger      *slog.Logger
	metrics     *observability.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

func NewServer(analytics *services.Analytics, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		metrics:     metrics,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes()

	s.handler = s.mux
	if metrics != nil {
		s.handler = middleware.Metrics(metrics)(s.mux)
	}
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.sseHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/timeline", s.apiHandlers.HandleTimeline)
	s.mux.HandleFunc("GET /api/distributors", s.apiHandlers.HandleDistributors)
	s.mux.HandleFunc("GET /api/classifications", s.apiHandlers.HandleClassifications)
	s.mux.HandleFunc("GET /api/stores", s.apiHandlers.HandleStores)
	s.mux.HandleFunc("GET /api/countries", s.apiHandlers.HandleCountries)
	s.mux.HandleFunc("GET /api/top-tracks", s.apiHandlers.HandleTopTracks)
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleFilters)

	// Downloads
	s.mux.HandleFunc("GET /export/csv", s.apiHandlers.HandleExportCSV)
	s.mux.HandleFunc("GET /export/xlsx", s.apiHandlers.HandleExportXLSX)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
