package upstream

import (
	"context"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// ReviewsClient talks to the review service.
type ReviewsClient struct {
	c *Client
}

// NewReviewsClient builds a client rooted at the review collection URL,
// e.g. http://localhost:8081/reviews.
func NewReviewsClient(baseURL string, opts Options) (*ReviewsClient, error) {
	c, err := newClient("reviews", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &ReviewsClient{c: c}, nil
}

// Reviews lists the reviews recorded for movieID in upstream order. Missing
// reviews are normal, so a 404 or an empty body yields an empty slice.
func (r *ReviewsClient) Reviews(ctx context.Context, movieID string) (Outcome[[]domain.Review], error) {
	endpoint := *r.c.baseURL
	q := endpoint.Query()
	q.Set("movieInfoId", movieID)
	endpoint.RawQuery = q.Encode()

	out, err := fetch(ctx, r.c, endpoint.String(), decodeOptions[[]domain.Review]{
		onNotFound: func() Outcome[[]domain.Review] {
			return Succeeded([]domain.Review{})
		},
		allowEmpty: true,
	})
	if err == nil && out.Kind == Success && out.Value == nil {
		out.Value = []domain.Review{}
	}
	return out, err
}
