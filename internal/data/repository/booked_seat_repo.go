package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookedSeatRepository interface {
	// CreateBatch fails with ErrConflict when a seat position already has an
	// active row.
	CreateBatch(ctx context.Context, seats []*entity.BookedSeat) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookedSeat, error)
	FindActiveBySeatPositionIDs(ctx context.Context, seatPositionIDs []uuid.UUID) ([]*entity.BookedSeat, error)
	FindActiveByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.BookedSeat, error)
	CountActiveByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error)
	// ReleaseByBookingID deactivates the booking's active seats and returns them.
	ReleaseByBookingID(ctx context.Context, bookingID uuid.UUID, at time.Time) ([]*entity.BookedSeat, error)
}

type bookedSeatRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookedSeatRepository(db database.Querier, log *zap.Logger) BookedSeatRepository {
	return &bookedSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "booked_seat")),
	}
}

const bookedSeatColumns = `id, booking_id, seat_position_id, show_id, tier_id, position_no, price, active, released_at, created_at`

func (r *bookedSeatRepository) CreateBatch(ctx context.Context, seats []*entity.BookedSeat) error {
	if len(seats) == 0 {
		return nil
	}

	const cols = 10
	var sb strings.Builder
	sb.WriteString(`INSERT INTO booked_seats (` + bookedSeatColumns + `) VALUES `)
	args := make([]any, 0, len(seats)*cols)
	for i, s := range seats {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*cols+c)
		}
		sb.WriteString(")")
		args = append(args,
			s.ID,
			s.BookingID,
			s.SeatPositionID,
			s.ShowID,
			s.TierID,
			s.PositionNo,
			s.Price,
			s.Active,
			s.ReleasedAt,
			s.CreatedAt,
		)
	}

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		r.log.Error("Failed to create booked seats",
			zap.Error(err),
			zap.String("booking_id", seats[0].BookingID.String()),
			zap.Int("count", len(seats)),
		)
		return fmt.Errorf("create booked seats for booking %s: %w", seats[0].BookingID.String(), classify(err))
	}

	return nil
}

func (r *bookedSeatRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookedSeat, error) {
	query := `SELECT ` + bookedSeatColumns + ` FROM booked_seats WHERE booking_id = $1 ORDER BY position_no`
	return r.list(ctx, "find booked seats by booking", query, bookingID)
}

func (r *bookedSeatRepository) FindActiveBySeatPositionIDs(ctx context.Context, seatPositionIDs []uuid.UUID) ([]*entity.BookedSeat, error) {
	if len(seatPositionIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + bookedSeatColumns + `
		FROM booked_seats
		WHERE seat_position_id = ANY($1) AND active
		ORDER BY position_no
	`
	return r.list(ctx, "find active booked seats by position", query, seatPositionIDs)
}

func (r *bookedSeatRepository) FindActiveByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.BookedSeat, error) {
	query := `
		SELECT ` + bookedSeatColumns + `
		FROM booked_seats
		WHERE show_id = $1 AND active
		ORDER BY position_no
	`
	return r.list(ctx, "find active booked seats by show", query, showID)
}

func (r *bookedSeatRepository) CountActiveByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT bs.tier_id, COUNT(*)
		FROM booked_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.show_id = $1 AND bs.active AND b.status <> 'cancelled'
		GROUP BY bs.tier_id
	`

	rows, err := r.db.Query(ctx, query, showID)
	if err != nil {
		r.log.Error("Failed to count active booked seats", zap.Error(err), zap.String("show_id", showID.String()))
		return nil, fmt.Errorf("count active booked seats for show %s: %w", showID.String(), err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var tierID uuid.UUID
		var n int
		if err := rows.Scan(&tierID, &n); err != nil {
			return nil, fmt.Errorf("scan booked seat count: %w", err)
		}
		counts[tierID] = n
	}

	return counts, rows.Err()
}

func (r *bookedSeatRepository) ReleaseByBookingID(ctx context.Context, bookingID uuid.UUID, at time.Time) ([]*entity.BookedSeat, error) {
	query := `
		UPDATE booked_seats
		SET active = FALSE, released_at = $2
		WHERE booking_id = $1 AND active
		RETURNING ` + bookedSeatColumns
	return r.list(ctx, "release booked seats", query, bookingID, at)
}

func (r *bookedSeatRepository) list(ctx context.Context, op, query string, args ...any) ([]*entity.BookedSeat, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	var seats []*entity.BookedSeat
	for rows.Next() {
		var s entity.BookedSeat
		err := rows.Scan(
			&s.ID,
			&s.BookingID,
			&s.SeatPositionID,
			&s.ShowID,
			&s.TierID,
			&s.PositionNo,
			&s.Price,
			&s.Active,
			&s.ReleasedAt,
			&s.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booked seat row", zap.Error(err))
			return nil, fmt.Errorf("scan booked seat row: %w", err)
		}
		seats = append(seats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return seats, nil
}
