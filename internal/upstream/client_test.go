package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
	"github.com/Clark-Hu/reactive-movies/internal/retry"
)

func testOptions() Options {
	return Options{
		Timeout: 2 * time.Second,
		Retry:   retry.Policy{Backoff: retry.BackoffExp, MaxRetries: 3, Base: time.Millisecond, Cap: 5 * time.Millisecond, Factor: 2},
		Logger:  log.New(io.Discard, "", 0),
	}
}

// countingServer answers every request with handler and counts the hits.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newInfoClient(t *testing.T, baseURL string) *MovieInfoClient {
	t.Helper()
	client, err := NewMovieInfoClient(baseURL, testOptions())
	if err != nil {
		t.Fatalf("NewMovieInfoClient: %v", err)
	}
	return client
}

func newReviewsClient(t *testing.T, baseURL string) *ReviewsClient {
	t.Helper()
	client, err := NewReviewsClient(baseURL, testOptions())
	if err != nil {
		t.Fatalf("NewReviewsClient: %v", err)
	}
	return client
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewMovieInfoClient("/movieinfos", testOptions()); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestMovieInfoClient_Success(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movieinfos/m1" {
			t.Errorf("path = %s, want /movieinfos/m1", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","name":"Batman Begins","year":2005,"cast":["Christian Bale"],"releaseDate":"2005-06-15"}`))
	})

	out, err := newInfoClient(t, srv.URL+"/movieinfos/").MovieInfo(context.Background(), "m1")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	if out.Kind != Success || out.Err() != nil {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if out.Value.Name != "Batman Begins" || out.Value.ReleaseDate.String() != "2005-06-15" {
		t.Fatalf("value = %+v", out.Value)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestMovieInfoClient_NotFound(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	out, err := newInfoClient(t, srv.URL+"/movieinfos").MovieInfo(context.Background(), "movieId")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	if out.Kind != ClientError || out.StatusCode != http.StatusNotFound {
		t.Fatalf("outcome = %+v, want 404 client error", out)
	}
	if out.Message != "No MovieInfo available with the id movieId" {
		t.Fatalf("message = %q", out.Message)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want a single non-retried request", hits.Load())
	}
}

func TestMovieInfoClient_ClientErrorVerbatim(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("movie id is malformed"))
	})

	out, err := newInfoClient(t, srv.URL).MovieInfo(context.Background(), "x")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	upErr, ok := AsError(out.Err())
	if !ok || upErr.Kind != ClientError || upErr.StatusCode != http.StatusBadRequest || upErr.Message != "movie id is malformed" {
		t.Fatalf("error = %+v, want verbatim 400", upErr)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestMovieInfoClient_ServerErrorRetried(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Movie Info Service Unavailable"))
	})

	out, err := newInfoClient(t, srv.URL).MovieInfo(context.Background(), "movieId")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	if out.Kind != ServerError || out.StatusCode != http.StatusInternalServerError {
		t.Fatalf("outcome = %+v, want 500 server error", out)
	}
	if out.Message != "Movie Info Service Unavailable" {
		t.Fatalf("message = %q, want upstream body", out.Message)
	}
	if hits.Load() != 4 {
		t.Fatalf("hits = %d, want 4 (1 + 3 retries)", hits.Load())
	}
}

func TestMovieInfoClient_RecoversAfterServerError(t *testing.T) {
	var calls atomic.Int32
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","name":"The Dark Knight","year":2008,"cast":["Heath Ledger"]}`))
	})

	out, err := newInfoClient(t, srv.URL).MovieInfo(context.Background(), "1")
	if err != nil || out.Kind != Success || out.Value.Name != "The Dark Knight" {
		t.Fatalf("outcome = %+v, err = %v", out, err)
	}
}

func TestMovieInfoClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	out, err := newInfoClient(t, baseURL).MovieInfo(context.Background(), "1")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	if out.Kind != ServerError || out.StatusCode != http.StatusBadGateway {
		t.Fatalf("outcome = %+v, want 502 server error", out)
	}
	if out.Message != "movieinfo service unavailable" {
		t.Fatalf("message = %q", out.Message)
	}
}

func TestMovieInfoClient_MalformedBody(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	})

	out, err := newInfoClient(t, srv.URL).MovieInfo(context.Background(), "1")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}
	if out.Kind != ServerError || out.StatusCode != http.StatusBadGateway {
		t.Fatalf("outcome = %+v, want 502 server error", out)
	}
	if hits.Load() != 4 {
		t.Fatalf("hits = %d, want 4", hits.Load())
	}
}

func TestMovieInfoClient_ContextCanceledStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	})

	opts := testOptions()
	opts.Retry.Base = time.Hour
	client, err := NewMovieInfoClient(srv.URL, opts)
	if err != nil {
		t.Fatalf("NewMovieInfoClient: %v", err)
	}

	_, err = client.MovieInfo(ctx, "1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want no attempt after cancellation", hits.Load())
	}
}

func TestReviewsClient_QueryAndOrder(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("movieInfoId"); got != "1" {
			t.Errorf("movieInfoId = %q, want 1", got)
		}
		_, _ = w.Write([]byte(`[{"reviewId":"b","movieInfoId":1,"comment":"Awesome Movie","rating":9.0},{"reviewId":"a","movieInfoId":1,"comment":"Excellent Movie","rating":8.0}]`))
	})

	out, err := newReviewsClient(t, srv.URL+"/reviews").Reviews(context.Background(), "1")
	if err != nil || out.Kind != Success {
		t.Fatalf("outcome = %+v, err = %v", out, err)
	}
	if len(out.Value) != 2 || out.Value[0].ID != "b" || out.Value[1].ID != "a" {
		t.Fatalf("reviews = %+v, want upstream order", out.Value)
	}
}

func TestReviewsClient_AbsentReviewsAreEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"empty body", func(w http.ResponseWriter, r *http.Request) { w.Header().Set("Content-Type", "application/json") }},
		{"empty array", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("[]")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := countingServer(t, tt.handler)
			out, err := newReviewsClient(t, srv.URL).Reviews(context.Background(), "1")
			if err != nil || out.Kind != Success {
				t.Fatalf("outcome = %+v, err = %v", out, err)
			}
			if out.Value == nil || len(out.Value) != 0 {
				t.Fatalf("reviews = %#v, want empty non-nil slice", out.Value)
			}
			if hits.Load() != 1 {
				t.Fatalf("hits = %d, want 1", hits.Load())
			}
		})
	}
}

func TestReviewsClient_ServerErrorRetried(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Reviews Service Unavailable"))
	})

	out, err := newReviewsClient(t, srv.URL).Reviews(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if out.Kind != ServerError || out.Message != "Reviews Service Unavailable" {
		t.Fatalf("outcome = %+v", out)
	}
	if hits.Load() != 4 {
		t.Fatalf("hits = %d, want 4", hits.Load())
	}
}

func TestMovieInfoClient_Stream(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movieinfos/stream" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, name := range []string{"Batman Begins", "The Dark Knight"} {
			_ = enc.Encode(domain.MovieInfo{Name: name, Year: 2005, Cast: []string{"Christian Bale"}})
		}
	})

	var names []string
	for info, err := range newInfoClient(t, srv.URL+"/movieinfos").Stream(context.Background()) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		names = append(names, info.Name)
	}
	if len(names) != 2 || names[0] != "Batman Begins" || names[1] != "The Dark Knight" {
		t.Fatalf("names = %v", names)
	}
}

func TestMovieInfoClient_StreamUpstreamError(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	})

	for _, err := range newInfoClient(t, srv.URL).Stream(context.Background()) {
		upErr, ok := AsError(err)
		if !ok || upErr.Kind != ServerError || upErr.Message != "down" {
			t.Fatalf("err = %v, want classified server error", err)
		}
		return
	}
	t.Fatalf("expected one error from stream")
}
