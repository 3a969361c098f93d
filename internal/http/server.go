package httpserver

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/movie-search/internal/config"
	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/search"
)

// MovieDatabase is the movie metadata upstream as the handlers need it.
type MovieDatabase interface {
	SearchRaw(ctx context.Context, term string, page int) ([]byte, error)
	DetailRaw(ctx context.Context, id string) ([]byte, error)
	FetchDetail(ctx context.Context, id string) (domain.DetailRecord, error)
}

// TrailerFinder is the video search upstream.
type TrailerFinder interface {
	SearchRaw(ctx context.Context, title, year string) ([]byte, error)
	FindTrailer(ctx context.Context, title, year string) (domain.Trailer, error)
}

// TextGenerator is the generative text upstream.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Upstreams bundles the upstream clients shared by the relays and the pages.
type Upstreams struct {
	Movies   MovieDatabase
	Trailers TrailerFinder
	AI       TextGenerator
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	upstreams Upstreams
	sessions  *search.SessionStore
	gatherer  prometheus.Gatherer
	logger    *log.Logger
	validate  *validator.Validate
	pages     *template.Template
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes. gatherer may be nil, in
// which case /metrics is not served.
func New(cfg config.Config, ups Upstreams, sessions *search.SessionStore, gatherer prometheus.Gatherer, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:       cfg,
		upstreams: ups,
		sessions:  sessions,
		gatherer:  gatherer,
		logger:    logger,
		validate:  newValidator(),
		pages:     parsePages(),
		router:    r,
	}
	s.registerRoutes()
	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      http.HandlerFunc(s.serveHTTP),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSecs) * time.Second,
	}
	return s
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/functions", func(r chi.Router) {
		r.Use(cors)
		r.Get("/fetchMovies", s.handleFetchMovies)
		r.Get("/fetchMovieDetails", s.handleFetchMovieDetails)
		r.Get("/fetchMovieTrailer", s.handleFetchMovieTrailer)
		r.Get("/gemini", s.handleGemini)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleAPISearch)
		r.Delete("/search", s.handleAPIReset)
		r.Get("/movies/{id}", s.handleAPIMovie)
	})

	s.router.Get("/", s.handleIndex)
	s.router.Post("/reset", s.handleReset)
	s.router.Get("/movies/{id}", s.handleMoviePage)
	s.router.Get("/usage", s.handleUsage)
	s.router.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))
}

// Start serves until Shutdown is called; it returns nil after a graceful stop.
func (s *Server) Start() error {
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) upstreamTimeout() time.Duration {
	if s.cfg.UpstreamTimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.cfg.UpstreamTimeoutSecs) * time.Second
}

func (s *Server) searchTimeout() time.Duration {
	if s.cfg.SearchTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.cfg.SearchTimeoutSecs) * time.Second
}
