package httpserver

import (
	"context"
	"errors"
	"iter"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/reactive-movies/internal/broadcast"
	"github.com/Clark-Hu/reactive-movies/internal/config"
	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/repository"
)

// MovieInfoStore is satisfied by *repository.MovieInfosRepository.
type MovieInfoStore interface {
	Save(ctx context.Context, info domain.MovieInfo) (domain.MovieInfo, error)
	Update(ctx context.Context, id string, info domain.MovieInfo) (domain.MovieInfo, error)
	FindByID(ctx context.Context, id string) (domain.MovieInfo, error)
	FindAll(ctx context.Context, filter repository.MovieInfoFilter) ([]domain.MovieInfo, error)
	DeleteByID(ctx context.Context, id string) error
}

// MovieInfoFeed is satisfied by *broadcast.Channel[domain.MovieInfo].
type MovieInfoFeed interface {
	Publish(info domain.MovieInfo)
	Subscribe(ctx context.Context) iter.Seq[domain.MovieInfo]
}

// ReviewStore is satisfied by *repository.ReviewsRepository.
type ReviewStore interface {
	Save(ctx context.Context, review domain.Review) (domain.Review, error)
	Update(ctx context.Context, id string, review domain.Review) (domain.Review, error)
	FindByID(ctx context.Context, id string) (domain.Review, error)
	FindAll(ctx context.Context) ([]domain.Review, error)
	FindByMovieInfoID(ctx context.Context, movieInfoID int64) ([]domain.Review, error)
	DeleteByID(ctx context.Context, id string) error
}

// MovieAggregator is satisfied by *aggregator.Service.
type MovieAggregator interface {
	GetMovie(ctx context.Context, movieID string) (domain.Movie, error)
	StreamMovieInfos(ctx context.Context) iter.Seq2[domain.MovieInfo, error]
}

// HealthChecker is satisfied by *store.Store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Option mounts one service's routes on the Server.
type Option func(*Server)

// WithMovieInfos serves /movieinfos from infos and publishes created records
// to feed. A nil feed gets a fresh in-memory channel.
func WithMovieInfos(infos MovieInfoStore, feed MovieInfoFeed) Option {
	if feed == nil {
		feed = broadcast.New[domain.MovieInfo]()
	}
	return func(s *Server) {
		s.infos = infos
		s.feed = feed
	}
}

// WithReviews serves /reviews from reviews.
func WithReviews(reviews ReviewStore) Option {
	return func(s *Server) { s.reviews = reviews }
}

// WithMovies serves /movies from the aggregator.
func WithMovies(movies MovieAggregator) Option {
	return func(s *Server) { s.movies = movies }
}

// WithHealthCheck makes /healthz report the result of h.
func WithHealthCheck(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	infos   MovieInfoStore
	feed    MovieInfoFeed
	reviews ReviewStore
	movies  MovieAggregator
	health  HealthChecker
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and the routes of
// every service passed in opts.
func New(cfg config.Config, logger *log.Logger, opts ...Option) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.infos != nil {
		s.router.Route("/movieinfos", func(r chi.Router) {
			r.Get("/", s.handleListMovieInfos)
			r.Post("/", s.handleCreateMovieInfo)
			r.Get("/stream", s.handleStreamMovieInfos)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMovieInfo)
				r.Put("/", s.handleUpdateMovieInfo)
				r.Delete("/", s.handleDeleteMovieInfo)
			})
		})
	}
	if s.reviews != nil {
		s.router.Route("/reviews", func(r chi.Router) {
			r.Get("/", s.handleListReviews)
			r.Post("/", s.handleCreateReview)
			r.Put("/{id}", s.handleUpdateReview)
			r.Delete("/{id}", s.handleDeleteReview)
		})
	}
	if s.movies != nil {
		s.router.Route("/movies", func(r chi.Router) {
			r.Get("/stream", s.handleStreamMovies)
			r.Get("/{movieId}", s.handleGetMovie)
		})
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully. Request contexts
// derive from ctx so open streams end on shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ErrorLog:     s.logger,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Printf("health check failed: %v", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
