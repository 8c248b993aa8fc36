package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatPositionRepository interface {
	CreateBatch(ctx context.Context, positions []*entity.SeatPosition) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatPosition, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.SeatPosition, error)
	FindByShowAndNumbers(ctx context.Context, showID uuid.UUID, numbers []int) ([]*entity.SeatPosition, error)
	// FindByShowID returns the show's seat map ordered by position number.
	FindByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.SeatPosition, error)
	// FindFreeByTier returns up to limit positions of the tier that are not
	// claimed by an active booked seat, lowest position number first.
	FindFreeByTier(ctx context.Context, showID, tierID uuid.UUID, limit int) ([]*entity.SeatPosition, error)
	CountByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error)
}

type seatPositionRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewSeatPositionRepository(db database.Querier, log *zap.Logger) SeatPositionRepository {
	return &seatPositionRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat_position")),
	}
}

const seatPositionColumns = `id, show_id, tier_id, position_no, created_at`

func (r *seatPositionRepository) CreateBatch(ctx context.Context, positions []*entity.SeatPosition) error {
	if len(positions) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO seat_positions (` + seatPositionColumns + `) VALUES `)
	args := make([]any, 0, len(positions)*5)
	for i, p := range positions {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5)
		args = append(args, p.ID, p.ShowID, p.TierID, p.PositionNo, p.CreatedAt)
	}

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		r.log.Error("Failed to create seat positions",
			zap.Error(err),
			zap.Int("count", len(positions)),
		)
		return fmt.Errorf("create %d seat positions: %w", len(positions), classify(err))
	}

	return nil
}

func (r *seatPositionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatPosition, error) {
	query := `SELECT ` + seatPositionColumns + ` FROM seat_positions WHERE id = $1`

	var p entity.SeatPosition
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.ShowID, &p.TierID, &p.PositionNo, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat position by ID",
			zap.Error(err),
			zap.String("seat_position_id", id.String()),
		)
		return nil, fmt.Errorf("find seat position by ID %s: %w", id.String(), err)
	}

	return &p, nil
}

func (r *seatPositionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.SeatPosition, error) {
	query := `
		SELECT ` + seatPositionColumns + `
		FROM seat_positions
		WHERE id = ANY($1)
		ORDER BY position_no
	`
	return r.list(ctx, "find seat positions by IDs", query, ids)
}

func (r *seatPositionRepository) FindByShowAndNumbers(ctx context.Context, showID uuid.UUID, numbers []int) ([]*entity.SeatPosition, error) {
	query := `
		SELECT ` + seatPositionColumns + `
		FROM seat_positions
		WHERE show_id = $1 AND position_no = ANY($2)
		ORDER BY position_no
	`
	return r.list(ctx, "find seat positions by numbers", query, showID, numbers)
}

func (r *seatPositionRepository) FindByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.SeatPosition, error) {
	query := `
		SELECT ` + seatPositionColumns + `
		FROM seat_positions
		WHERE show_id = $1
		ORDER BY position_no
	`
	return r.list(ctx, "find seat positions by show", query, showID)
}

func (r *seatPositionRepository) FindFreeByTier(ctx context.Context, showID, tierID uuid.UUID, limit int) ([]*entity.SeatPosition, error) {
	query := `
		SELECT sp.id, sp.show_id, sp.tier_id, sp.position_no, sp.created_at
		FROM seat_positions sp
		WHERE sp.show_id = $1 AND sp.tier_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM booked_seats bs
			WHERE bs.seat_position_id = sp.id AND bs.active
		  )
		ORDER BY sp.position_no
		LIMIT $3
		FOR UPDATE OF sp
	`
	return r.list(ctx, "find free seat positions", query, showID, tierID, limit)
}

func (r *seatPositionRepository) CountByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT tier_id, COUNT(*)
		FROM seat_positions
		WHERE show_id = $1
		GROUP BY tier_id
	`

	rows, err := r.db.Query(ctx, query, showID)
	if err != nil {
		r.log.Error("Failed to count seat positions", zap.Error(err), zap.String("show_id", showID.String()))
		return nil, fmt.Errorf("count seat positions for show %s: %w", showID.String(), err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var tierID uuid.UUID
		var n int
		if err := rows.Scan(&tierID, &n); err != nil {
			return nil, fmt.Errorf("scan seat position count: %w", err)
		}
		counts[tierID] = n
	}

	return counts, rows.Err()
}

func (r *seatPositionRepository) list(ctx context.Context, op, query string, args ...any) ([]*entity.SeatPosition, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	var positions []*entity.SeatPosition
	for rows.Next() {
		var p entity.SeatPosition
		if err := rows.Scan(&p.ID, &p.ShowID, &p.TierID, &p.PositionNo, &p.CreatedAt); err != nil {
			r.log.Error("Failed to scan seat position row", zap.Error(err))
			return nil, fmt.Errorf("scan seat position row: %w", err)
		}
		positions = append(positions, &p)
	}

	return positions, rows.Err()
}
