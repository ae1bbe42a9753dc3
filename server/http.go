// Package server hosts the query service over HTTP and NATS.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semdex/query"
	"github.com/c360studio/semdex/triple"
)

// HTTP serves the query API over chi.
type HTTP struct {
	service *query.Service
	logger  *slog.Logger
	srv     *http.Server
}

// NewHTTP creates an HTTP server for the query service on addr.
func NewHTTP(service *query.Service, addr string, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTP{
		service: service,
		logger:  logger,
	}
	h.srv = &http.Server{
		Addr:         addr,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return h
}

// Router assembles the route table. Exposed so tests can drive handlers
// without a listener.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", h.handleQuery)
		r.Get("/resolve/{id}", h.handleResolve)
		r.Get("/identifiers", h.handleIdentifiers)
		r.Get("/stats", h.handleStats)
	})

	return r
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (h *HTTP) Start() error {
	h.logger.Info("HTTP server listening", "addr", h.srv.Addr)
	if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (h *HTTP) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

// ctxKey namespaces context values set by this package.
type ctxKey int

const requestIDKey ctxKey = iota

// requestID tags every request with a uuid, echoed in the X-Request-ID
// header and in JSON response bodies. An id supplied by the caller is
// kept so proxies can thread their own.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func reqID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// QueryRequest is the POST /api/query body: query text for the injected
// parser, or a pre-parsed AST in its JSON wire form.
type QueryRequest struct {
	Query string          `json:"query,omitempty"`
	AST   json.RawMessage `json:"ast,omitempty"`
}

// QueryResponse carries the bindings of an executed query.
type QueryResponse struct {
	RequestID   string            `json:"request_id"`
	Bindings    []*triple.Binding `json:"bindings"`
	Count       int               `json:"count"`
	QueryTimeMs int64             `json:"query_time_ms"`
}

// ResolveResponse is the location found for an identifier.
type ResolveResponse struct {
	RequestID string `json:"request_id"`
	ID        string `json:"id"`
	Location  string `json:"location"`
}

// IdentifiersResponse lists locations whose identifier shares a prefix.
type IdentifiersResponse struct {
	RequestID string   `json:"request_id"`
	Prefix    string   `json:"prefix"`
	Locations []string `json:"locations"`
	Count     int      `json:"count"`
}

// StatsResponse reports index sizes and query counters.
type StatsResponse struct {
	RequestID string      `json:"request_id"`
	Stats     query.Stats `json:"stats"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// handleQuery handles POST /api/query.
func (h *HTTP) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var (
		result *query.Result
		err    error
	)
	switch {
	case len(req.AST) > 0:
		var ast *query.Query
		ast, err = query.DecodeQuery(req.AST)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		result, err = h.service.QueryAST(r.Context(), ast)
	case req.Query != "":
		result, err = h.service.Query(r.Context(), req.Query)
	default:
		h.writeError(w, r, http.StatusBadRequest, "either query or ast is required")
		return
	}
	if err != nil {
		h.writeError(w, r, queryStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, QueryResponse{
		RequestID:   reqID(r),
		Bindings:    result.Bindings,
		Count:       result.Count,
		QueryTimeMs: result.QueryTime.Milliseconds(),
	})
}

// queryStatus maps a query failure to an HTTP status. Bad query text and
// untranslatable constructs are the caller's fault; a missing parser is a
// deployment gap.
func queryStatus(err error) int {
	var te *query.TranslateError
	var pe *query.ParseError
	switch {
	case errors.Is(err, query.ErrNoParser):
		return http.StatusNotImplemented
	case errors.As(err, &te), errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleResolve handles GET /api/resolve/{id}.
func (h *HTTP) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	location, ok := h.service.Resolve(id)
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "identifier not found")
		return
	}

	h.writeJSON(w, http.StatusOK, ResolveResponse{
		RequestID: reqID(r),
		ID:        id,
		Location:  location,
	})
}

// handleIdentifiers handles GET /api/identifiers?prefix=.
func (h *HTTP) handleIdentifiers(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.writeError(w, r, http.StatusBadRequest, "prefix parameter is required")
		return
	}

	locations := h.service.ResolvePartial(prefix)
	h.writeJSON(w, http.StatusOK, IdentifiersResponse{
		RequestID: reqID(r),
		Prefix:    prefix,
		Locations: locations,
		Count:     len(locations),
	})
}

// handleStats handles GET /api/stats.
func (h *HTTP) handleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatsResponse{
		RequestID: reqID(r),
		Stats:     h.service.Stats(),
	})
}

// handleHealth handles GET /healthz.
func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"request_id": reqID(r),
	})
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", "error", err)
	}
}

func (h *HTTP) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", msg)
	}
	h.writeJSON(w, status, errorResponse{RequestID: reqID(r), Error: msg})
}
