package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ShowRepository interface {
	Create(ctx context.Context, show *entity.Show) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Show, error)
	// FindFrom returns shows starting at or after from, earliest first.
	FindFrom(ctx context.Context, from time.Time) ([]*entity.Show, error)
}

type showRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewShowRepository(db database.Querier, log *zap.Logger) ShowRepository {
	return &showRepository{
		db:  db,
		log: log.With(zap.String("repository", "show")),
	}
}

func (r *showRepository) Create(ctx context.Context, show *entity.Show) error {
	query := `
		INSERT INTO shows (id, movie_id, showing_at, total_seat_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		show.ID,
		show.MovieID,
		show.ShowingAt,
		show.TotalSeatCount,
		show.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create show",
			zap.Error(err),
			zap.String("movie_id", show.MovieID.String()),
			zap.Time("showing_at", show.ShowingAt),
		)
		return fmt.Errorf("create show for movie %s: %w", show.MovieID.String(), classify(err))
	}

	return nil
}

func (r *showRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Show, error) {
	query := `
		SELECT id, movie_id, showing_at, total_seat_count, created_at
		FROM shows
		WHERE id = $1
	`

	var show entity.Show
	err := r.db.QueryRow(ctx, query, id).Scan(
		&show.ID,
		&show.MovieID,
		&show.ShowingAt,
		&show.TotalSeatCount,
		&show.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find show by ID",
			zap.Error(err),
			zap.String("show_id", id.String()),
		)
		return nil, fmt.Errorf("find show by ID %s: %w", id.String(), err)
	}

	return &show, nil
}

func (r *showRepository) FindFrom(ctx context.Context, from time.Time) ([]*entity.Show, error) {
	query := `
		SELECT id, movie_id, showing_at, total_seat_count, created_at
		FROM shows
		WHERE showing_at >= $1
		ORDER BY showing_at, id
	`

	rows, err := r.db.Query(ctx, query, from)
	if err != nil {
		r.log.Error("Failed to find shows", zap.Error(err), zap.Time("from", from))
		return nil, fmt.Errorf("find shows from %s: %w", from.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var shows []*entity.Show
	for rows.Next() {
		var show entity.Show
		err := rows.Scan(
			&show.ID,
			&show.MovieID,
			&show.ShowingAt,
			&show.TotalSeatCount,
			&show.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan show row", zap.Error(err))
			return nil, fmt.Errorf("scan show row: %w", err)
		}
		shows = append(shows, &show)
	}

	return shows, rows.Err()
}
