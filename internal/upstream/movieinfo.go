package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// MovieInfoClient talks to the movie-info service.
type MovieInfoClient struct {
	c *Client
}

// NewMovieInfoClient builds a client rooted at the movie-info collection URL,
// e.g. http://localhost:8080/movieinfos.
func NewMovieInfoClient(baseURL string, opts Options) (*MovieInfoClient, error) {
	c, err := newClient("movieinfo", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &MovieInfoClient{c: c}, nil
}

// MovieInfo fetches one record by id. A 404 is a terminal ClientError.
func (m *MovieInfoClient) MovieInfo(ctx context.Context, id string) (Outcome[domain.MovieInfo], error) {
	endpoint := m.c.baseURL.JoinPath(url.PathEscape(id)).String()
	return fetch(ctx, m.c, endpoint, decodeOptions[domain.MovieInfo]{
		onNotFound: func() Outcome[domain.MovieInfo] {
			return ClientFailure[domain.MovieInfo](http.StatusNotFound, fmt.Sprintf("No MovieInfo available with the id %s", id))
		},
	})
}

// Stream follows the newline-delimited feed of created records. It is not
// retried; a non-2xx answer is yielded once as an *Error.
func (m *MovieInfoClient) Stream(ctx context.Context) iter.Seq2[domain.MovieInfo, error] {
	return func(yield func(domain.MovieInfo, error) bool) {
		endpoint := m.c.baseURL.JoinPath("stream").String()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			yield(domain.MovieInfo{}, err)
			return
		}
		req.Header.Set("Accept", "application/x-ndjson")

		resp, err := m.c.stream.Do(req)
		if err != nil {
			yield(domain.MovieInfo{}, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
			yield(domain.MovieInfo{}, classify(m.c.name, resp.StatusCode, body, decodeOptions[domain.MovieInfo]{}).Err())
			return
		}

		dec := json.NewDecoder(resp.Body)
		for {
			var info domain.MovieInfo
			if err := dec.Decode(&info); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				yield(domain.MovieInfo{}, fmt.Errorf("decode %s stream: %w", m.c.name, err))
				return
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}
