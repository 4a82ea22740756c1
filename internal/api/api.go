// Package api is the thin net/http façade over the core: it wires an
// explicit AppContext into a stdlib ServeMux, and maps
// the taxonomy of internal/apperr onto HTTP status codes and JSON error
// bodies. Route handlers never touch the database directly; they call
// into internal/chat, internal/upsert, internal/dashboard, and
// internal/store.
package api

import (
	"io"
	"net/http"
	"time"

	"coachspine/internal/agent"
	"coachspine/internal/apperr"
	"coachspine/internal/chat"
	"coachspine/internal/dashboard"
	"coachspine/internal/logx"
	"coachspine/internal/scheduler"
	"coachspine/internal/store"
	"coachspine/internal/telemetry"
	"coachspine/internal/upsert"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AppContext carries every dependency a handler might need, constructed
// once at boot in cmd/server and passed by reference into the server —
// the explicit-DI replacement for global request state.
type AppContext struct {
	Store        *store.Store
	Chat         *chat.Service
	Runtime      *agent.Runtime
	Upserts      *upsert.Service
	Dashboard    *dashboard.Service
	Scheduler    *scheduler.Scheduler
	ToolRegistry *agent.Registry

	// DefaultUserID is the single-user-per-deployment identity carried through every handler for schema correctness. A
	// request may override it with the X-User-ID header.
	DefaultUserID uuid.UUID

	CORSAllowedOrigin string
}

// Server holds the constructed mux plus the AppContext its handlers close over.
type Server struct {
	ctx *AppContext
	mux *http.ServeMux
}

// NewServer registers every route against ctx.
func NewServer(ctx *AppContext) *Server {
	s := &Server{ctx: ctx, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	s.mux.HandleFunc("POST /nutrition/upload", s.handleNutritionUpload)
	s.mux.HandleFunc("POST /apple-health/upload", s.handleAppleHealthUpload)
	s.mux.HandleFunc("POST /upload/apple-health-json", s.handleAppleHealthUpload)
	s.mux.HandleFunc("GET /workout-history", s.handleWorkoutHistory)
	s.mux.HandleFunc("GET /dashboard/stats", s.handleDashboardStats)
	s.mux.HandleFunc("GET /sync/alerts", s.handleSyncAlerts)
	s.mux.HandleFunc("GET /user/profile/{id}", s.handleGetProfile)
	s.mux.HandleFunc("POST /user/profile", s.handlePostProfile)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Handler wraps the mux with the CORS/compression/logging middleware
// stack, the same shape ClusterCockpit-cc-backend's server.go applies
// (handlers.CORS + handlers.CompressHandler + handlers.CustomLoggingHandler)
// rather than a hand-rolled middleware chain.
func (s *Server) Handler() http.Handler {
	origin := s.ctx.CORSAllowedOrigin
	if origin == "" {
		origin = "*"
	}

	wrapped := tracingMiddleware(s.mux)
	wrapped = handlers.CompressHandler(wrapped)
	wrapped = handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization", "X-User-ID"}),
		handlers.AllowedMethods([]string{"GET", "POST", "HEAD", "OPTIONS"}),
		handlers.AllowedOrigins([]string{origin}),
	)(wrapped)
	return handlers.CustomLoggingHandler(logx.InfoWriter, wrapped, logFormatter)
}

var requestCounter = func() metric.Int64Counter {
	c, err := telemetry.Meter().Int64Counter("http.server.request_count")
	if err != nil {
		logx.Warnf("telemetry: registering http request counter: %v", err)
		return nil
	}
	return c
}()

// tracingMiddleware starts one span per request, named for the method
// and path, the same shape metamorph's FiberMiddleware traces Fiber
// requests with — adapted here to stdlib net/http and composed as the
// innermost layer of the handlers.CORS/CompressHandler/
// CustomLoggingHandler stack rather than a hand-rolled chain.
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.Tracer().Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if requestCounter != nil {
			requestCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("http.path", r.URL.Path),
				attribute.Int("http.status_code", rec.status),
			))
		}
	})
}

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logFormatter(writer io.Writer, params handlers.LogFormatterParams) {
	logx.Infof("%s %s %s %d %dB %s",
		params.Request.Method, params.URL.Path, time.Since(params.TimeStamp),
		params.StatusCode, params.Size, params.Request.RemoteAddr)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveUserID returns the caller's user id: the X-User-ID header if
// present and well-formed, otherwise the deployment's single default
// user.
func (s *Server) resolveUserID(r *http.Request) (uuid.UUID, error) {
	if h := r.Header.Get("X-User-ID"); h != "" {
		id, err := uuid.Parse(h)
		if err != nil {
			return uuid.Nil, apperr.Parse("X-User-ID header is not a valid identifier")
		}
		return id, nil
	}
	return s.ctx.DefaultUserID, nil
}

// writeError maps an apperr.Error (or any error) to a stable JSON error
// body and the HTTP status the error kind maps to.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.StatusFor(kind)
	if kind == "" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{
		"code":  string(kind),
		"error": err.Error(),
	})
}
