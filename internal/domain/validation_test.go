package domain

import (
	"errors"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestReviewValidate(t *testing.T) {
	tests := []struct {
		name    string
		review  Review
		wantErr string
	}{
		{
			name:   "valid",
			review: Review{MovieInfoID: int64Ptr(1), Comment: "Awesome Movie", Rating: 9.0},
		},
		{
			name:   "zero rating accepted",
			review: Review{MovieInfoID: int64Ptr(1), Rating: 0},
		},
		{
			name:    "negative rating",
			review:  Review{MovieInfoID: int64Ptr(1), Rating: -1},
			wantErr: "rating.negative : please pass a non-negative value",
		},
		{
			name:    "missing movie reference",
			review:  Review{Rating: 5},
			wantErr: "rating.movieInfoId: must not be null",
		},
		{
			name:    "both violations sorted",
			review:  Review{Comment: "Awesome Movie", Rating: -1.0},
			wantErr: "rating.movieInfoId: must not be null, rating.negative : please pass a non-negative value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.review.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Fatalf("Validate() error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestMovieInfoValidate(t *testing.T) {
	valid := MovieInfo{
		Name:        "Batman Begins",
		Year:        2005,
		Cast:        []string{"Christian Bale", "Michael Cane"},
		ReleaseDate: NewDate(2005, 6, 15),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	invalid := MovieInfo{Name: " ", Year: -2005, Cast: []string{"", " "}}
	err := invalid.Validate()
	want := "movieInfo.cast must be present, movieInfo.name must be present, movieInfo.year must be a Positive Value"
	if err == nil || err.Error() != want {
		t.Fatalf("Validate() error = %v, want %q", err, want)
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.Violations) != 3 {
		t.Fatalf("violations = %+v, want 3 unique entries", vErr)
	}
}

func TestMovieInfoReplaceKeepsID(t *testing.T) {
	stored := MovieInfo{ID: "abc", Name: "Dark Knight Rises", Year: 2012, Cast: []string{"Christian Bale"}}
	update := MovieInfo{ID: "other", Name: "Dark Knight Rises 1", Year: 2013, Cast: []string{"Tom Hardy"}}

	got := stored.Replace(update)
	if got.ID != "abc" {
		t.Fatalf("ID = %q, want abc", got.ID)
	}
	if got.Name != update.Name || got.Year != update.Year || got.Cast[0] != "Tom Hardy" {
		t.Fatalf("Replace() = %+v, want fields from update", got)
	}
}
