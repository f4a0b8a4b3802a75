// Package api exposes the latest balance board reading over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/okian/balanceboard/internal/domain/model"
)

// Source is the read-only view of the latest reading used by the handlers.
type Source interface {
	Snapshot() (model.Snapshot, bool)
}

// Server wires HTTP routes for the board API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	sampleHandler *SampleHandler
	plotHandler   *plotHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(src Source, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		sampleHandler: NewSampleHandler(src),
		plotHandler:   newPlotHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/sample", MetricsMiddleware(s.sampleHandler.HandleSample, "sample"))
	mux.HandleFunc("/api/cop", MetricsMiddleware(s.sampleHandler.HandleCoP, "cop"))
	mux.HandleFunc("/plot", s.plotHandler.HandlePlot)
}
