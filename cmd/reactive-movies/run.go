package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/reactive-movies/internal/aggregator"
	"github.com/Clark-Hu/reactive-movies/internal/broadcast"
	"github.com/Clark-Hu/reactive-movies/internal/config"
	"github.com/Clark-Hu/reactive-movies/internal/domain"
	httpserver "github.com/Clark-Hu/reactive-movies/internal/http"
	"github.com/Clark-Hu/reactive-movies/internal/repository"
	"github.com/Clark-Hu/reactive-movies/internal/store"
	"github.com/Clark-Hu/reactive-movies/internal/upstream"
)

// run wires the service named by cfg and serves until ctx is done.
func run(ctx context.Context, cfg config.Config, migrate bool) error {
	logger := log.New(os.Stdout, "["+string(cfg.Service)+"] ", log.LstdFlags|log.Lshortfile)

	var opts []httpserver.Option
	switch cfg.Service {
	case config.MovieInfo, config.Reviews:
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if migrate {
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}
		repo := repository.New(st)
		opts = append(opts, httpserver.WithHealthCheck(st))
		if cfg.Service == config.MovieInfo {
			opts = append(opts, httpserver.WithMovieInfos(repo.MovieInfos, broadcast.New[domain.MovieInfo]()))
		} else {
			opts = append(opts, httpserver.WithReviews(repo.Reviews))
		}
	case config.Aggregator:
		svc, err := newAggregator(cfg, logger)
		if err != nil {
			return err
		}
		opts = append(opts, httpserver.WithMovies(svc))
	default:
		return fmt.Errorf("unknown service %q", cfg.Service)
	}

	server := httpserver.New(cfg, logger, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("graceful shutdown error: %v", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return st, nil
}

func newAggregator(cfg config.Config, logger *log.Logger) (*aggregator.Service, error) {
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}
	opts := upstream.Options{
		Timeout: time.Duration(cfg.UpstreamTimeoutSecs) * time.Second,
		Retry:   policy,
		Logger:  logger,
	}
	infos, err := upstream.NewMovieInfoClient(cfg.MovieInfoURL, opts)
	if err != nil {
		return nil, fmt.Errorf("init movie info client: %w", err)
	}
	reviews, err := upstream.NewReviewsClient(cfg.ReviewsURL, opts)
	if err != nil {
		return nil, fmt.Errorf("init reviews client: %w", err)
	}
	return aggregator.New(infos, reviews, logger), nil
}
