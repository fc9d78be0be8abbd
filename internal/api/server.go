// Package api serves stored run reports over HTTP.
//
// Routes:
//
//	GET /healthz                                  liveness and version
//	GET /api/v1/reports                           run summaries, newest first
//	GET /api/v1/reports/{run}                     one full report
//	GET /api/v1/reports/{run}/patients/{patient}  one patient's visits
//	GET /api/v1/compare                           combine two stored runs
//
// Responses are JSON. Errors carry their code in the body and map onto HTTP
// statuses: REPORT_NOT_FOUND becomes 404, the INVALID_* family 400,
// STORE_ERROR 502.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/store"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server exposes a report store over HTTP.
type Server struct {
	store  store.Store
	logger *log.Logger
}

// New returns a server backed by st. A nil logger is replaced with a silent
// one.
func New(st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{store: st, logger: logger}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{run}", s.handleGetReport)
		r.Get("/reports/{run}/patients/{patient}", s.handleGetPatient)
		r.Get("/compare", s.handleCompare)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Info("serving reports", "addr", addr)
	select {
	case err := <-errc:
		return pkgerrors.Wrap(pkgerrors.ErrCodeNetwork, err, "serve %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return pkgerrors.Wrap(pkgerrors.ErrCodeTimeout, err, "shutdown did not drain in %v", shutdownTimeout)
	}
	s.logger.Info("server stopped")
	return nil
}

// requestLogger logs one line per request with status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := pkgerrors.GetCode(err)
	if code == "" {
		code = pkgerrors.ErrCodeInternal
	}
	s.respondJSON(w, statusFor(code), errorBody{Code: code, Message: pkgerrors.UserMessage(err)})
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(code pkgerrors.Code) int {
	switch code {
	case pkgerrors.ErrCodeNotFound, pkgerrors.ErrCodeFileNotFound,
		pkgerrors.ErrCodeReportNotFound, pkgerrors.ErrCodeSourceNotFound:
		return http.StatusNotFound
	case pkgerrors.ErrCodeInvalidInput, pkgerrors.ErrCodeInvalidFormat,
		pkgerrors.ErrCodeInvalidShape, pkgerrors.ErrCodeInvalidVoxel,
		pkgerrors.ErrCodeInvalidName, pkgerrors.ErrCodeInvalidConfig,
		pkgerrors.ErrCodeInvalidPath, pkgerrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case pkgerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case pkgerrors.ErrCodeStore, pkgerrors.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
