package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/reactive-movies/internal/config"
	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/repository"
)

// memoryInfos is an in-memory MovieInfoStore.
type memoryInfos struct {
	mu    sync.Mutex
	items []domain.MovieInfo
	seq   int
	err   error
}

func (m *memoryInfos) Save(ctx context.Context, info domain.MovieInfo) (domain.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.MovieInfo{}, m.err
	}
	if info.ID == "" {
		m.seq++
		info.ID = strconv.Itoa(m.seq)
	}
	for _, existing := range m.items {
		if existing.ID == info.ID {
			return domain.MovieInfo{}, repository.ErrConflict
		}
	}
	m.items = append(m.items, info)
	return info, nil
}

func (m *memoryInfos) Update(ctx context.Context, id string, info domain.MovieInfo) (domain.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == id {
			info.ID = id
			m.items[i] = info
			return info, nil
		}
	}
	return domain.MovieInfo{}, repository.ErrNotFound
}

func (m *memoryInfos) FindByID(ctx context.Context, id string) (domain.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ID == id {
			return existing, nil
		}
	}
	return domain.MovieInfo{}, repository.ErrNotFound
}

func (m *memoryInfos) FindAll(ctx context.Context, filter repository.MovieInfoFilter) ([]domain.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.MovieInfo, 0, len(m.items))
	for _, info := range m.items {
		if filter.Year != nil && info.Year != *filter.Year {
			continue
		}
		if filter.Name != nil && info.Name != *filter.Name {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (m *memoryInfos) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

// memoryReviews is an in-memory ReviewStore.
type memoryReviews struct {
	mu    sync.Mutex
	items []domain.Review
	seq   int
}

func (m *memoryReviews) Save(ctx context.Context, review domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	review.ID = "r" + strconv.Itoa(m.seq)
	m.items = append(m.items, review)
	return review, nil
}

func (m *memoryReviews) Update(ctx context.Context, id string, review domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == id {
			review.ID = id
			m.items[i] = review
			return review, nil
		}
	}
	return domain.Review{}, repository.ErrNotFound
}

func (m *memoryReviews) FindByID(ctx context.Context, id string) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ID == id {
			return existing, nil
		}
	}
	return domain.Review{}, repository.ErrNotFound
}

func (m *memoryReviews) FindAll(ctx context.Context) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review{}, m.items...), nil
}

func (m *memoryReviews) FindByMovieInfoID(ctx context.Context, movieInfoID int64) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Review, 0)
	for _, review := range m.items {
		if review.MovieInfoID != nil && *review.MovieInfoID == movieInfoID {
			out = append(out, review)
		}
	}
	return out, nil
}

func (m *memoryReviews) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func buildTestServer(tb testing.TB, opts ...Option) *Server {
	tb.Helper()
	cfg := config.Config{
		Port:             "0",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	srv := New(cfg, discardLogger(), opts...)
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	return srv
}

func attachParam(req *http.Request, key, value string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func movieInfoRef(id int64) *int64 { return &id }
