package upstream

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Clark-Hu/reactive-movies/internal/retry"
)

// TestMovieInfoClientSmoke checks a running movie-info service (or the upstream
// mock) can be reached and decoded.
func TestMovieInfoClientSmoke(t *testing.T) {
	baseURL := os.Getenv("MOVIEINFO_URL")
	if baseURL == "" {
		t.Skip("MOVIEINFO_URL not provided")
	}
	id := os.Getenv("MOVIEINFO_SMOKE_ID")
	if id == "" {
		id = "1"
	}
	client, err := NewMovieInfoClient(baseURL, Options{
		Timeout: 3 * time.Second,
		Retry:   retry.Default(),
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := client.MovieInfo(ctx, id)
	if err != nil {
		t.Fatalf("fetch movie info: %v", err)
	}
	if out.Kind != Success || out.Value.Name == "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
