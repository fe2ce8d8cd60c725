package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/metrics"
	"github.com/jonathan/climatewash/internal/pipeline"
	"github.com/jonathan/climatewash/internal/server/middleware"
	"github.com/jonathan/climatewash/internal/server/ratelimit"
)

const shutdownTimeout = 30 * time.Second

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	// RequestTimeout bounds one diagnosis, including acquisition and export
	RequestTimeout time.Duration
	MaxUploadBytes int64
	RateLimit      ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     chi.Router
	diagnoser  *pipeline.Diagnoser
	metrics    *metrics.Recorder
	limiter    *ratelimit.Limiter
	logger     logrus.FieldLogger
	config     Config
}

// New creates a new server instance. recorder may be nil, in which case /metrics is not served.
func New(cfg Config, diagnoser *pipeline.Diagnoser, recorder *metrics.Recorder, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		diagnoser: diagnoser,
		metrics:   recorder,
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		logger:    logger,
		config:    cfg,
	}
	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(s.logger))
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	mux.Use(ratelimit.Middleware(s.limiter, s.logger))

	mux.Get("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/criteria", s.wrap(s.handleCriteria))

		rt.Route("/diagnoses", func(rt chi.Router) {
			rt.Post("/text", s.wrap(s.handleDiagnoseText))
			rt.Post("/image", s.wrap(s.handleDiagnoseImage))
			rt.Post("/document", s.wrap(s.handleDiagnoseDocument))
			rt.Post("/web", s.wrap(s.handleDiagnoseWeb))
			rt.Post("/video", s.wrap(s.handleDiagnoseVideo))
		})

		rt.Route("/transcripts", func(rt chi.Router) {
			rt.Post("/youtube", s.wrap(s.handleTranscriptYouTube))
			rt.Post("/media", s.wrap(s.handleTranscriptMedia))
		})

		rt.Route("/history", func(rt chi.Router) {
			rt.Get("/", s.wrap(s.handleListHistory))
			rt.Get("/stats", s.wrap(s.handleHistoryStats))
			rt.Get("/{id}", s.wrap(s.handleGetHistory))
			rt.Get("/{id}/report.md", s.wrap(s.handleHistoryReport))
			rt.Get("/{id}/result.json", s.wrap(s.handleHistoryJSON))
			rt.Post("/{id}/export", s.wrap(s.handleHistoryExport))
		})
	})
	return mux
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", ln.Addr().String()).Info("server starting")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps handler errors to JSON error responses
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			middleware.Logger(r.Context()).WithError(err).Error("request handler failed")
		}
		s.errorResponse(w, status, validationMessage(err))
	}
}

// HealthResponse reports which optional capabilities are configured
type HealthResponse struct {
	Status        string `json:"status"`
	Transcription bool   `json:"transcription"`
	Export        bool   `json:"export"`
	Diagnoses     int    `json:"diagnoses"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Transcription: s.diagnoser.TranscriptionAvailable(),
		Export:        s.diagnoser.ExportConfigured(),
		Diagnoses:     s.diagnoser.History().Len(),
	})
}

func (s *Server) handleCriteria(w http.ResponseWriter, _ *http.Request) error {
	s.jsonResponse(w, http.StatusOK, s.diagnoser.Criteria())
	return nil
}

// requestContext bounds a diagnosis by the configured request timeout
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.config.RequestTimeout)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
