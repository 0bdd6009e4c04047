package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// MovieInfosRepository persists catalogue entries.
type MovieInfosRepository struct {
	pool *pgxpool.Pool
}

const movieInfoColumns = `id, name, year, cast_members, release_date`

// MovieInfoFilter narrows FindAll. Nil fields do not filter.
type MovieInfoFilter struct {
	Year *int
	Name *string
}

// Save inserts info. An empty ID is drawn from movie_info_id_seq, skipping
// values already taken by client-supplied ids; a taken client ID yields
// ErrConflict.
func (r *MovieInfosRepository) Save(ctx context.Context, info domain.MovieInfo) (domain.MovieInfo, error) {
	if info.ID != "" {
		query := fmt.Sprintf(`
            INSERT INTO movie_infos (id, name, year, cast_members, release_date)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING %s
        `, movieInfoColumns)

		row := r.pool.QueryRow(ctx, query, info.ID, info.Name, info.Year, castOrEmpty(info.Cast), dateArg(info.ReleaseDate))
		saved, err := scanMovieInfo(row)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.MovieInfo{}, ErrConflict
			}
			return domain.MovieInfo{}, fmt.Errorf("insert movie info: %w", err)
		}
		return saved, nil
	}

	query := fmt.Sprintf(`
        INSERT INTO movie_infos (id, name, year, cast_members, release_date)
        VALUES (nextval('movie_info_id_seq')::text, $1, $2, $3, $4)
        ON CONFLICT (id) DO NOTHING
        RETURNING %s
    `, movieInfoColumns)

	for {
		row := r.pool.QueryRow(ctx, query, info.Name, info.Year, castOrEmpty(info.Cast), dateArg(info.ReleaseDate))
		saved, err := scanMovieInfo(row)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.MovieInfo{}, fmt.Errorf("insert movie info: %w", err)
		}
		// the drawn id was already taken; draw again
		if err := ctx.Err(); err != nil {
			return domain.MovieInfo{}, err
		}
	}
}

// Update replaces every field of the entry identified by id.
func (r *MovieInfosRepository) Update(ctx context.Context, id string, info domain.MovieInfo) (domain.MovieInfo, error) {
	query := fmt.Sprintf(`
        UPDATE movie_infos
        SET name = $2,
            year = $3,
            cast_members = $4,
            release_date = $5,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieInfoColumns)

	row := r.pool.QueryRow(ctx, query, id, info.Name, info.Year, castOrEmpty(info.Cast), dateArg(info.ReleaseDate))
	updated, err := scanMovieInfo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MovieInfo{}, ErrNotFound
		}
		return domain.MovieInfo{}, fmt.Errorf("update movie info: %w", err)
	}
	return updated, nil
}

// FindByID fetches one entry.
func (r *MovieInfosRepository) FindByID(ctx context.Context, id string) (domain.MovieInfo, error) {
	query := fmt.Sprintf(`SELECT %s FROM movie_infos WHERE id = $1`, movieInfoColumns)
	info, err := scanMovieInfo(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MovieInfo{}, ErrNotFound
		}
		return domain.MovieInfo{}, err
	}
	return info, nil
}

// FindAll lists entries in insertion order, narrowed by filter.
func (r *MovieInfosRepository) FindAll(ctx context.Context, filter MovieInfoFilter) ([]domain.MovieInfo, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 2)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Year != nil {
		where = append(where, "year = "+arg(*filter.Year))
	}
	if filter.Name != nil {
		where = append(where, "name = "+arg(*filter.Name))
	}

	var query strings.Builder
	fmt.Fprintf(&query, "SELECT %s FROM movie_infos", movieInfoColumns)
	if len(where) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(where, " AND "))
	}
	query.WriteString(" ORDER BY created_at, id")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MovieInfo, 0)
	for rows.Next() {
		info, err := scanMovieInfo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByID removes an entry, returning ErrNotFound when nothing was deleted.
func (r *MovieInfosRepository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movie_infos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movie info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMovieInfo(row pgx.Row) (domain.MovieInfo, error) {
	var (
		info        domain.MovieInfo
		releaseDate *time.Time
	)
	if err := row.Scan(&info.ID, &info.Name, &info.Year, &info.Cast, &releaseDate); err != nil {
		return domain.MovieInfo{}, err
	}
	if releaseDate != nil {
		info.ReleaseDate = domain.NewDate(releaseDate.Year(), releaseDate.Month(), releaseDate.Day())
	}
	return info, nil
}

func castOrEmpty(cast []string) []string {
	if cast == nil {
		return []string{}
	}
	return cast
}

func dateArg(d domain.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}
