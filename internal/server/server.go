package server

import (
	"log/slog"
	"net/http"

	"ecom-dashboard/internal/handlers"
	"ecom-dashboard/internal/services"
)

type Server struct {
	store       *services.Store
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(store *services.Store, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		store:       store,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(store, logger),
		sseHandlers: handlers.NewSSEHandlers(store, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard page
	s.mux.HandleFunc("GET /", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints; all accept ?start=&end= date bounds
	s.mux.HandleFunc("GET /api/bounds", s.apiHandlers.HandleBounds)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/category-revenue", s.apiHandlers.HandleCategoryRevenue)
	s.mux.HandleFunc("GET /api/state-customers", s.apiHandlers.HandleStateCustomers)
	s.mux.HandleFunc("GET /api/loyalty-segments", s.apiHandlers.HandleLoyaltySegments)
	s.mux.HandleFunc("GET /api/rfm", s.apiHandlers.HandleRFM)
	s.mux.HandleFunc("GET /api/monthly-revenue", s.apiHandlers.HandleMonthlyRevenue)
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboardView)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/summary", s.sseHandlers.HandleSummary)
	s.mux.HandleFunc("GET /sse/category-revenue", s.sseHandlers.HandleCategoryRevenue)
	s.mux.HandleFunc("GET /sse/state-customers", s.sseHandlers.HandleStateCustomers)
	s.mux.HandleFunc("GET /sse/loyalty-segments", s.sseHandlers.HandleLoyaltySegments)
	s.mux.HandleFunc("GET /sse/rfm", s.sseHandlers.HandleRFM)
	s.mux.HandleFunc("GET /sse/monthly-revenue", s.sseHandlers.HandleMonthlyRevenue)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
