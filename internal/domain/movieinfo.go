package domain

import "strings"

// MovieInfo is the catalogue entry stored by the movie-info service.
// An empty ID means the record has never been persisted.
type MovieInfo struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Cast        []string `json:"cast"`
	ReleaseDate Date     `json:"releaseDate"`
}

// Validate reports every constraint the record violates.
func (m MovieInfo) Validate() error {
	var v violations
	if strings.TrimSpace(m.Name) == "" {
		v.add("movieInfo.name must be present")
	}
	if m.Year <= 0 {
		v.add("movieInfo.year must be a Positive Value")
	}
	if len(m.Cast) == 0 {
		v.add("movieInfo.cast must be present")
	}
	for _, member := range m.Cast {
		if strings.TrimSpace(member) == "" {
			v.add("movieInfo.cast must be present")
		}
	}
	return v.err()
}

// Replace returns m with every field except the identifier taken from update.
func (m MovieInfo) Replace(update MovieInfo) MovieInfo {
	return MovieInfo{
		ID:          m.ID,
		Name:        update.Name,
		Year:        update.Year,
		Cast:        append([]string(nil), update.Cast...),
		ReleaseDate: update.ReleaseDate,
	}
}
