package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quakewatch/internal/dashboard"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/window"
)

// Dashboard is the state the API reads and drives.
type Dashboard interface {
	sharedobs.ReadinessChecker

	Current() dashboard.Result
	Query(ctx context.Context, f domain.Filter) (dashboard.Result, error)
	Filter() domain.Filter
	SetFilter(ctx context.Context, f domain.Filter) error
	Status() dashboard.Status
	ForceRefresh(ctx context.Context) error

	Rows(scrollOffset, containerHeight float64) dashboard.Rows
	MapVisible(bounds window.Bounds, padding float64) []dashboard.Marker
	PanMap(bounds window.Bounds)
	MapMarkers(flush bool) (window.Bounds, []dashboard.Marker, bool)

	Detail(ctx context.Context, id string) (domain.DetailSummary, error)
	Select(id string) (domain.Event, error)
	Selected() (domain.Event, bool)
	ClearSelection()
}

// Server exposes health, readiness, metrics and the dashboard JSON API.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, dash Dashboard, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:   dash,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(dash))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleEventDetail)
	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("PUT /api/filter", s.handlePutFilter)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/rows", s.handleRows)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/map/viewport", s.handleGetViewport)
	mux.HandleFunc("POST /api/map/viewport", s.handlePanMap)
	mux.HandleFunc("POST /api/select/{id}", s.handleSelect)
	mux.HandleFunc("GET /api/selection", s.handleSelection)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
