package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/signalsfoundry/meshlink-planner/internal/logging"
	"github.com/signalsfoundry/meshlink-planner/internal/observability"
)

// maxRequestBytes bounds the size of an estimate request body.
const maxRequestBytes = 1 << 16

// RESTOptions configures the REST handler.
type RESTOptions struct {
	AllowedOrigins []string
	Timeout        time.Duration
	Metrics        *observability.TransportCollector
	Log            logging.Logger
}

type restServer struct {
	svc *Service
	log logging.Logger
}

// NewRESTHandler returns the chi router serving the REST API under /api/v1.
func NewRESTHandler(svc *Service, opts RESTOptions) http.Handler {
	if opts.Log == nil {
		opts.Log = logging.Noop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &restServer{svc: svc, log: opts.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.HTTPMiddleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/variants", s.listVariants)
		r.Get("/variants/{id}", s.getVariant)
		r.Post("/estimate", s.estimate)
	})
	return r
}

// requestLogger carries the request id into the logging context, preferring
// a caller-supplied X-Request-Id over chi's generated one.
func (s *restServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = middleware.GetReqID(ctx)
		}
		if id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(
			logging.String("http_method", r.Method),
			logging.String("path", r.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(middleware.RequestIDHeader, logging.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *restServer) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ok",
		"variants": len(s.svc.Variants(r.Context())),
	})
}

func (s *restServer) listVariants(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, VariantsResponse{Variants: s.svc.Variants(r.Context())})
}

func (s *restServer) getVariant(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Variant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, v)
}

func (s *restServer) estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	summary, err := s.svc.Estimate(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, summary)
}

func (s *restServer) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.LoggerFromContext(r.Context(), s.log).Error(r.Context(), "marshal response failed", logging.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *restServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.LoggerFromContext(r.Context(), s.log).Error(r.Context(), "request failed", logging.Err(err))
	}
	s.respondJSON(w, r, status, ErrorResponse{Error: err.Error(), Code: Code(err).String()})
}
