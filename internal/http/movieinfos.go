package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/repository"
	"github.com/Clark-Hu/reactive-movies/internal/streamfilter"
)

func (s *Server) handleCreateMovieInfo(w http.ResponseWriter, r *http.Request) {
	var info domain.MovieInfo
	if err := decodeJSONBody(w, r, &info); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	info.ID = strings.TrimSpace(info.ID)
	if s.respondInvalid(w, info.Validate()) {
		return
	}

	saved, err := s.infos.Save(r.Context(), info)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, "CONFLICT", "MovieInfo with id "+info.ID+" already exists")
			return
		}
		s.logger.Printf("create movie info error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create movie info")
		return
	}

	s.respondJSON(w, http.StatusCreated, saved)
	s.feed.Publish(saved)
}

func (s *Server) handleListMovieInfos(w http.ResponseWriter, r *http.Request) {
	filter, err := buildMovieInfoFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	infos, err := s.infos.FindAll(r.Context(), filter)
	if err != nil {
		s.logger.Printf("list movie infos error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movie infos")
		return
	}
	s.respondJSON(w, http.StatusOK, infos)
}

func buildMovieInfoFilter(query url.Values) (repository.MovieInfoFilter, error) {
	var filter repository.MovieInfoFilter
	if raw := strings.TrimSpace(query.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("year must be an integer")
		}
		filter.Year = &year
	}
	if name := strings.TrimSpace(query.Get("name")); name != "" {
		filter.Name = &name
	}
	return filter, nil
}

func (s *Server) handleGetMovieInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.infos.FindByID(r.Context(), id)
	if err != nil {
		s.respondMovieInfoLookupError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleUpdateMovieInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var update domain.MovieInfo
	if err := decodeJSONBody(w, r, &update); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if s.respondInvalid(w, update.Validate()) {
		return
	}

	updated, err := s.infos.Update(r.Context(), id, domain.MovieInfo{ID: id}.Replace(update))
	if err != nil {
		s.respondMovieInfoLookupError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMovieInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.infos.DeleteByID(r.Context(), id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Printf("delete movie info %s error: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete movie info")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondMovieInfoLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "MovieInfo "+id+" not found")
		return
	}
	s.logger.Printf("movie info %s error: %v", id, err)
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load movie info")
}

// handleStreamMovieInfos replays every created record and then follows new
// ones until the client disconnects or the server shuts down.
func (s *Server) handleStreamMovieInfos(w http.ResponseWriter, r *http.Request) {
	filter, err := streamfilter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid filter: "+err.Error())
		return
	}

	stream := startNDJSON(w)
	for info := range s.feed.Subscribe(r.Context()) {
		if !filter.Match(info) {
			continue
		}
		if err := stream.send(info); err != nil {
			s.logger.Printf("movie info stream closed: %v", err)
			return
		}
	}
}
