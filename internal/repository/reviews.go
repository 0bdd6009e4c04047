package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// ReviewsRepository persists reviews.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

const reviewColumns = `id, movie_info_id, comment, rating`

// Save inserts review under a fresh time-ordered identifier. Any ID on the
// input is ignored.
func (r *ReviewsRepository) Save(ctx context.Context, review domain.Review) (domain.Review, error) {
	if review.MovieInfoID == nil {
		return domain.Review{}, fmt.Errorf("insert review: movie info id is required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Review{}, fmt.Errorf("generate review id: %w", err)
	}

	query := fmt.Sprintf(`
        INSERT INTO reviews (id, movie_info_id, comment, rating)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, reviewColumns)

	saved, err := scanReview(r.pool.QueryRow(ctx, query, id.String(), *review.MovieInfoID, review.Comment, review.Rating))
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return saved, nil
}

// Update replaces the comment and rating of the review identified by id.
func (r *ReviewsRepository) Update(ctx context.Context, id string, review domain.Review) (domain.Review, error) {
	query := fmt.Sprintf(`
        UPDATE reviews
        SET comment = $2,
            rating = $3,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, reviewColumns)

	updated, err := scanReview(r.pool.QueryRow(ctx, query, id, review.Comment, review.Rating))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, fmt.Errorf("update review: %w", err)
	}
	return updated, nil
}

// FindByID fetches one review.
func (r *ReviewsRepository) FindByID(ctx context.Context, id string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// FindAll lists every review in creation order.
func (r *ReviewsRepository) FindAll(ctx context.Context) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews ORDER BY created_at, id`, reviewColumns)
	return r.list(ctx, query)
}

// FindByMovieInfoID lists the reviews referencing movieInfoID in creation order.
func (r *ReviewsRepository) FindByMovieInfoID(ctx context.Context, movieInfoID int64) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE movie_info_id = $1 ORDER BY created_at, id`, reviewColumns)
	return r.list(ctx, query, movieInfoID)
}

// DeleteByID removes a review, returning ErrNotFound when nothing was deleted.
func (r *ReviewsRepository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewsRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		review      domain.Review
		movieInfoID int64
	)
	if err := row.Scan(&review.ID, &movieInfoID, &review.Comment, &review.Rating); err != nil {
		return domain.Review{}, err
	}
	review.MovieInfoID = &movieInfoID
	return review, nil
}
