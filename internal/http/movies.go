package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/reactive-movies/internal/upstream"
)

// writeSlack covers encoding the response once the lookup has finished.
const writeSlack = 5 * time.Second

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")
	// Retries against a hung upstream may outlast the server write timeout.
	if budget := s.cfg.MovieLookupBudget(); budget > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(budget + writeSlack)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.logger.Printf("movie %s: extend write deadline: %v", movieID, err)
		}
	}
	movie, err := s.movies.GetMovie(r.Context(), movieID)
	if err != nil {
		s.respondUpstreamError(w, r, movieID, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movie)
}

// respondUpstreamError relays a classified upstream failure with its status
// and message. Anything else is an internal error.
func (s *Server) respondUpstreamError(w http.ResponseWriter, r *http.Request, movieID string, err error) {
	if upErr, ok := upstream.AsError(err); ok {
		status := upErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		s.respondText(w, status, upErr.Message)
		return
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		s.logger.Printf("movie %s: client went away", movieID)
		return
	}
	s.logger.Printf("movie %s error: %v", movieID, err)
	s.respondText(w, http.StatusInternalServerError, "internal error")
}

// handleStreamMovies relays the movie-info feed. The response status is
// decided by the first item, so an upstream failure before any record keeps
// its status.
func (s *Server) handleStreamMovies(w http.ResponseWriter, r *http.Request) {
	var stream *ndjsonStream
	for info, err := range s.movies.StreamMovieInfos(r.Context()) {
		if err != nil {
			if stream == nil {
				s.respondUpstreamError(w, r, "stream", err)
				return
			}
			s.logger.Printf("movie stream upstream error: %v", err)
			return
		}
		if stream == nil {
			stream = startNDJSON(w)
		}
		if err := stream.send(info); err != nil {
			s.logger.Printf("movie stream closed: %v", err)
			return
		}
	}
	if stream == nil {
		startNDJSON(w)
	}
}
