package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/budget"
	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/routing"
	"github.com/adaptivekit/cost-router/internal/scoring"
	"github.com/adaptivekit/cost-router/internal/telemetry"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Server represents the HTTP server
type Server struct {
	router     *routing.Router
	profiles   *profile.Store
	guard      *budget.Guard
	recorder   *telemetry.Recorder
	httpServer *http.Server
	logger     *logrus.Logger
	config     *Config
}

// Config holds server configuration
type Config struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// NewServer creates a new server instance
func NewServer(router *routing.Router, profiles *profile.Store, guard *budget.Guard, recorder *telemetry.Recorder, config *Config, logger *logrus.Logger) *Server {
	return &Server{
		router:   router,
		profiles: profiles,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	r := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + s.config.Port,
		Handler:        r,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.WithField("port", s.config.Port).Info("Starting cost router server")
	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping cost router server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.contentTypeMiddleware)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/completions", s.handleCompletion).Methods("POST")
	api.HandleFunc("/providers", s.handleListProviders).Methods("GET")
	api.HandleFunc("/budget", s.handleBudget).Methods("GET")
	api.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")

	r.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	r.HandleFunc("/docs/openapi.json", s.handleOpenAPISpec).Methods("GET")

	return r
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && contentType != "" {
				s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

// handleCompletion routes one completion request through the full pipeline.
func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req types.RoutingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	if req.Prompt == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !validComplexity(req.Complexity) {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid complexity: %s", req.Complexity))
		return
	}
	if !validPriority(req.Priority) {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid priority: %s", req.Priority))
		return
	}

	if req.ID == "" {
		req.ID = fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	req.Timestamp = time.Now()

	result, err := s.router.Route(r.Context(), &req)
	if err != nil {
		s.writeRoutingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleListProviders returns the current provider profiles, including the
// live latency and reliability metrics.
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	profiles := s.profiles.Snapshot()

	type providerView struct {
		profile.Profile
		FreeTierUsedToday int `json:"free_tier_used_today,omitempty"`
	}

	views := make([]providerView, 0, len(profiles))
	for _, p := range profiles {
		v := providerView{Profile: p}
		if p.FreeTierDailyQuota > 0 {
			v.FreeTierUsedToday = s.profiles.FreeTierUsage(p.ID)
		}
		views = append(views, v)
	}

	response := map[string]interface{}{
		"providers": views,
		"count":     len(views),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleBudget returns the current budget status.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	status, err := s.guard.Check(r.Context())
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Budget check failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleAnalytics returns the windowed telemetry report. The window defaults
// to 24 hours and is capped by whatever the ring buffer still holds.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	windowHours := 24
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid window_hours: %s", raw))
			return
		}
		windowHours = v
	}

	report := s.recorder.Analyze(windowHours)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// handleHealthCheck returns overall health status
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"providers": len(s.profiles.Snapshot()),
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Helper functions

// writeRoutingError maps the routing error taxonomy onto HTTP status codes.
func (s *Server) writeRoutingError(w http.ResponseWriter, err error) {
	var budgetErr *routing.BudgetExceededError
	if errors.As(err, &budgetErr) {
		s.writeErrorResponse(w, http.StatusPaymentRequired, budgetErr.Error())
		return
	}

	var noCandidate *scoring.NoCandidateError
	if errors.As(err, &noCandidate) {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, noCandidate.Error())
		return
	}

	var allFailed *routing.AllProvidersFailedError
	if errors.As(err, &allFailed) {
		s.writeErrorResponse(w, http.StatusBadGateway, allFailed.Error())
		return
	}

	switch providers.KindOf(err) {
	case providers.FailureTimeout:
		s.writeErrorResponse(w, http.StatusGatewayTimeout, err.Error())
	case providers.FailureRateLimited:
		s.writeErrorResponse(w, http.StatusTooManyRequests, err.Error())
	case providers.FailureCanceled:
		// Client went away; 499 is the conventional code for that.
		s.writeErrorResponse(w, 499, err.Error())
	default:
		s.writeErrorResponse(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "api_error",
			"code":    statusCode,
		},
		"timestamp": time.Now().Unix(),
	}

	json.NewEncoder(w).Encode(errorResp)
}

func validComplexity(c types.Complexity) bool {
	switch c {
	case "", types.ComplexitySimple, types.ComplexityModerate, types.ComplexityComplex:
		return true
	}
	return false
}

func validPriority(p types.Priority) bool {
	switch p {
	case "", types.PriorityLow, types.PriorityNormal, types.PriorityHigh:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
