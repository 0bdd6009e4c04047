// Package aggregator composes a Movie from the movie-info and review services.
package aggregator

import (
	"context"
	"iter"
	"log"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/upstream"
)

// MovieInfoSource is satisfied by *upstream.MovieInfoClient.
type MovieInfoSource interface {
	MovieInfo(ctx context.Context, id string) (upstream.Outcome[domain.MovieInfo], error)
	Stream(ctx context.Context) iter.Seq2[domain.MovieInfo, error]
}

// ReviewSource is satisfied by *upstream.ReviewsClient.
type ReviewSource interface {
	Reviews(ctx context.Context, movieID string) (upstream.Outcome[[]domain.Review], error)
}

// Service answers movie lookups by joining the two upstreams.
type Service struct {
	infos   MovieInfoSource
	reviews ReviewSource
	logger  *log.Logger
}

// New wires a Service. A nil logger falls back to log.Default().
func New(infos MovieInfoSource, reviews ReviewSource, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{infos: infos, reviews: reviews, logger: logger}
}

// GetMovie fetches the movie info for movieID and then its reviews. Upstream
// failures come back as *upstream.Error with the upstream status and message;
// the review service is not consulted when the info lookup fails. A Movie is
// returned only when both lookups succeed.
func (s *Service) GetMovie(ctx context.Context, movieID string) (domain.Movie, error) {
	info, err := s.infos.MovieInfo(ctx, movieID)
	if err != nil {
		return domain.Movie{}, err
	}
	if err := info.Err(); err != nil {
		return domain.Movie{}, err
	}

	reviews, err := s.reviews.Reviews(ctx, movieID)
	if err != nil {
		return domain.Movie{}, err
	}
	if err := reviews.Err(); err != nil {
		return domain.Movie{}, err
	}

	s.logger.Printf("movie %s assembled with %d reviews", movieID, len(reviews.Value))
	return domain.NewMovie(info.Value, reviews.Value), nil
}

// StreamMovieInfos relays the movie-info feed.
func (s *Service) StreamMovieInfos(ctx context.Context) iter.Seq2[domain.MovieInfo, error] {
	return s.infos.Stream(ctx)
}
