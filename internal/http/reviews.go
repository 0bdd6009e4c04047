package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/repository"
)

const reviewNotFoundMessage = "Review not found for the given Review id"

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var review domain.Review
	if err := decodeJSONBody(w, r, &review); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if s.respondInvalid(w, review.Validate()) {
		return
	}

	saved, err := s.reviews.Save(r.Context(), review)
	if err != nil {
		s.logger.Printf("create review error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create review")
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

// handleListReviews lists all reviews, or those of one movie when movieInfoId
// is given. An id that is not a number cannot be referenced by any review, so
// it yields an empty list.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	var (
		reviews []domain.Review
		err     error
	)
	if raw, ok := r.URL.Query()["movieInfoId"]; ok {
		movieInfoID, parseErr := strconv.ParseInt(strings.TrimSpace(raw[0]), 10, 64)
		if parseErr != nil {
			s.respondJSON(w, http.StatusOK, []domain.Review{})
			return
		}
		reviews, err = s.reviews.FindByMovieInfoID(r.Context(), movieInfoID)
	} else {
		reviews, err = s.reviews.FindAll(r.Context())
	}
	if err != nil {
		s.logger.Printf("list reviews error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, reviews)
}

// handleUpdateReview replaces the comment and rating of an existing review.
// The movie reference is kept.
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var update domain.Review
	if err := decodeJSONBody(w, r, &update); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	existing, err := s.reviews.FindByID(r.Context(), id)
	if err != nil {
		s.respondReviewLookupError(w, id, err)
		return
	}
	existing.Comment = update.Comment
	existing.Rating = update.Rating
	if s.respondInvalid(w, existing.Validate()) {
		return
	}

	updated, err := s.reviews.Update(r.Context(), id, existing)
	if err != nil {
		s.respondReviewLookupError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.reviews.DeleteByID(r.Context(), id); err != nil {
		s.respondReviewLookupError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondReviewLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondText(w, http.StatusNotFound, reviewNotFoundMessage)
		return
	}
	s.logger.Printf("review %s error: %v", id, err)
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load review")
}
