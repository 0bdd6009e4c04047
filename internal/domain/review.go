package domain

// Review is a rating left for a movie. MovieInfoID is not checked against the
// movie-info service; a dangling reference simply matches no movie.
type Review struct {
	ID          string  `json:"reviewId,omitempty"`
	MovieInfoID *int64  `json:"movieInfoId"`
	Comment     string  `json:"comment"`
	Rating      float64 `json:"rating"`
}

// Validate reports every constraint the review violates.
func (r Review) Validate() error {
	var v violations
	if r.MovieInfoID == nil {
		v.add("rating.movieInfoId: must not be null")
	}
	if r.Rating < 0 {
		v.add("rating.negative : please pass a non-negative value")
	}
	return v.err()
}
