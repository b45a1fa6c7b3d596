// Package api exposes the siting engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/store"
)

// Catalog resolves geographies. *instance.Registry satisfies it.
type Catalog interface {
	Get(geography string) (*instance.Instance, error)
	Summaries() []instance.Summary
}

// Options tunes request validation and middleware.
type Options struct {
	// MaxK bounds the site budget a request may ask for.
	MaxK int
	// RateLimit throttles solve requests. Zero disables throttling.
	RateLimit rate.Limit
	Burst     int
	// AllowedOrigins feeds CORS. Empty allows any origin.
	AllowedOrigins []string
	// RequestTimeout bounds each request. Zero disables the limit.
	RequestTimeout time.Duration
	// RecommendLimit caps the recommendations attached to a solve.
	RecommendLimit int
}

// DefaultMaxK is used when Options.MaxK is unset.
const DefaultMaxK = 50

// maxGridScenarios caps the expansion of one scenarios request.
const maxGridScenarios = 500

// Server holds the handlers' dependencies.
type Server struct {
	catalog Catalog
	orch    *scenario.Orchestrator
	runs    store.Store
	presets risk.Presets
	opts    Options
	limiter *rate.Limiter
}

// New creates a Server. runs may be nil, in which case solves are not
// recorded and run lookups return 404.
func New(catalog Catalog, orch *scenario.Orchestrator, runs store.Store, presets risk.Presets, opts Options) *Server {
	if opts.MaxK <= 0 {
		opts.MaxK = DefaultMaxK
	}
	if presets == nil {
		presets = risk.BuiltinPresets()
	}
	s := &Server{
		catalog: catalog,
		orch:    orch,
		runs:    runs,
		presets: presets,
		opts:    opts,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/geographies", s.listGeographies)
		r.Get("/geographies/{geo}/stats", s.geographyStats)
		r.Get("/geographies/{geo}/risk", s.geographyRisk)
		r.Get("/geographies/{geo}/candidates", s.listCandidates)
		r.Get("/presets", s.listPresets)

		r.Group(func(r chi.Router) {
			r.Use(s.throttle)
			r.Post("/solve", s.solve)
			r.Post("/scenarios", s.runScenarios)
		})

		r.Get("/runs", s.listRuns)
		r.Get("/runs/stats", s.runStats)
		r.Get("/runs/{id}", s.getRun)
	})

	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many solve requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
