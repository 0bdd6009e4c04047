package domain

// Movie joins one MovieInfo with the reviews recorded for it. It is built per
// request by the aggregator and never persisted.
type Movie struct {
	MovieInfo MovieInfo `json:"movieInfo"`
	Reviews   []Review  `json:"reviewList"`
}

// NewMovie builds the composite record. A nil review slice becomes empty so the
// wire form is always a JSON array.
func NewMovie(info MovieInfo, reviews []Review) Movie {
	if reviews == nil {
		reviews = []Review{}
	}
	return Movie{MovieInfo: info, Reviews: reviews}
}
