// Package http exposes the service API: the data query endpoint, cache
// administration, and the health, readiness, and metrics routes.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// DataProvider serves cleaned record sets and owns the result cache.
type DataProvider interface {
	GetData(ctx context.Context, req domain.FetchRequest) ([]domain.CanonicalRecord, error)
	ClearCache() int
	CheckReadiness(ctx context.Context) error
}

// BatchPublisher forwards served batches to downstream consumers.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, records []domain.CanonicalRecord) error
}

// Server exposes the ocean data API over HTTP.
type Server struct {
	httpServer *http.Server
	provider   DataProvider
	publisher  BatchPublisher // nil when publishing is disabled
	logger     *slog.Logger
}

// NewServer creates the HTTP server. publisher may be nil.
func NewServer(addr string, provider DataProvider, publisher BatchPublisher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second, // cold requests fan out to slow upstreams
			IdleTimeout:  60 * time.Second,
		},
		provider:  provider,
		publisher: publisher,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ocean/data", s.handleGetData)
	mux.HandleFunc("POST /cache/clear", s.handleCacheClear)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.provider.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type dataResponse struct {
	Count   int                      `json:"count"`
	Records []domain.CanonicalRecord `json:"records"`
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	req, err := parseFetchRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	records, err := s.provider.GetData(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBatch(r.Context(), records); err != nil {
			// Publishing is best-effort: downstream consumers lag, callers
			// still get their data.
			s.logger.Error("publish batch failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, dataResponse{Count: len(records), Records: records})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	dropped := s.provider.ClearCache()
	writeJSON(w, http.StatusOK, map[string]int{"entries_dropped": dropped})
}

// parseFetchRequest reads the bounding box, time window, and optional depth
// ceiling and ocean label from the query string.
func parseFetchRequest(r *http.Request) (domain.FetchRequest, error) {
	q := r.URL.Query()
	var req domain.FetchRequest
	var err error

	if req.LonMin, err = parseFloatParam(q.Get("lon_min"), "lon_min"); err != nil {
		return req, err
	}
	if req.LonMax, err = parseFloatParam(q.Get("lon_max"), "lon_max"); err != nil {
		return req, err
	}
	if req.LatMin, err = parseFloatParam(q.Get("lat_min"), "lat_min"); err != nil {
		return req, err
	}
	if req.LatMax, err = parseFloatParam(q.Get("lat_max"), "lat_max"); err != nil {
		return req, err
	}
	if req.Start, err = parseDateParam(q.Get("start"), "start"); err != nil {
		return req, err
	}
	if req.End, err = parseDateParam(q.Get("end"), "end"); err != nil {
		return req, err
	}

	if v := q.Get("depth_ceiling"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			return req, fmt.Errorf("invalid depth_ceiling %q", v)
		}
		req.DepthCeiling = &d
	}
	req.Ocean = q.Get("ocean")

	return req, req.Validate()
}

func parseFloatParam(v, name string) (float64, error) {
	if v == "" {
		return 0, fmt.Errorf("missing required parameter %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func parseDateParam(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("missing required parameter %s", name)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q, want YYYY-MM-DD", name, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
