package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AvailabilityRepository is the availability ledger: remaining seats per
// (show, tier). Writes never leave remaining outside [0, total].
type AvailabilityRepository interface {
	Create(ctx context.Context, availability *entity.Availability) error
	Get(ctx context.Context, showID, tierID uuid.UUID) (*entity.Availability, error)
	ListByShow(ctx context.Context, showID uuid.UUID) ([]*entity.Availability, error)
	ListByShowIDs(ctx context.Context, showIDs []uuid.UUID) ([]*entity.Availability, error)
	// TryReserve decrements remaining by quantity only if enough seats are
	// left. It reports false and changes nothing otherwise.
	TryReserve(ctx context.Context, showID, tierID uuid.UUID, quantity int) (bool, error)
	Release(ctx context.Context, showID, tierID uuid.UUID, quantity int) error
	// Set overwrites a row, used by reconciliation.
	Set(ctx context.Context, showID, tierID uuid.UUID, remaining, total int) error
}

type availabilityRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAvailabilityRepository(db database.Querier, log *zap.Logger) AvailabilityRepository {
	return &availabilityRepository{
		db:  db,
		log: log.With(zap.String("repository", "availability")),
	}
}

const availabilityColumns = `show_id, tier_id, remaining, total, updated_at`

func (r *availabilityRepository) Create(ctx context.Context, a *entity.Availability) error {
	if a.Remaining < 0 || a.Remaining > a.Total {
		return fmt.Errorf("create availability %d/%d: %w", a.Remaining, a.Total, ErrLedgerBounds)
	}

	query := `INSERT INTO seat_availability (` + availabilityColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, a.ShowID, a.TierID, a.Remaining, a.Total, a.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create availability",
			zap.Error(err),
			zap.String("show_id", a.ShowID.String()),
			zap.String("tier_id", a.TierID.String()),
		)
		return fmt.Errorf("create availability for show %s tier %s: %w",
			a.ShowID.String(), a.TierID.String(), classify(err))
	}

	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, showID, tierID uuid.UUID) (*entity.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM seat_availability WHERE show_id = $1 AND tier_id = $2`

	var a entity.Availability
	err := r.db.QueryRow(ctx, query, showID, tierID).Scan(&a.ShowID, &a.TierID, &a.Remaining, &a.Total, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to get availability",
			zap.Error(err),
			zap.String("show_id", showID.String()),
			zap.String("tier_id", tierID.String()),
		)
		return nil, fmt.Errorf("get availability for show %s tier %s: %w", showID.String(), tierID.String(), err)
	}

	return &a, nil
}

func (r *availabilityRepository) ListByShow(ctx context.Context, showID uuid.UUID) ([]*entity.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM seat_availability WHERE show_id = $1 ORDER BY tier_id`
	return r.list(ctx, query, showID)
}

func (r *availabilityRepository) ListByShowIDs(ctx context.Context, showIDs []uuid.UUID) ([]*entity.Availability, error) {
	if len(showIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + availabilityColumns + ` FROM seat_availability WHERE show_id = ANY($1) ORDER BY show_id, tier_id`
	return r.list(ctx, query, showIDs)
}

func (r *availabilityRepository) TryReserve(ctx context.Context, showID, tierID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}

	query := `
		UPDATE seat_availability
		SET remaining = remaining - $3, updated_at = NOW()
		WHERE show_id = $1 AND tier_id = $2 AND remaining >= $3
	`

	result, err := r.db.Exec(ctx, query, showID, tierID, quantity)
	if err != nil {
		r.log.Error("Failed to reserve availability",
			zap.Error(err),
			zap.String("show_id", showID.String()),
			zap.String("tier_id", tierID.String()),
			zap.Int("quantity", quantity),
		)
		return false, fmt.Errorf("reserve %d seats for show %s tier %s: %w",
			quantity, showID.String(), tierID.String(), classify(err))
	}

	return result.RowsAffected() == 1, nil
}

func (r *availabilityRepository) Release(ctx context.Context, showID, tierID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	query := `
		UPDATE seat_availability
		SET remaining = remaining + $3, updated_at = NOW()
		WHERE show_id = $1 AND tier_id = $2 AND remaining + $3 <= total
	`

	result, err := r.db.Exec(ctx, query, showID, tierID, quantity)
	if err != nil {
		r.log.Error("Failed to release availability",
			zap.Error(err),
			zap.String("show_id", showID.String()),
			zap.String("tier_id", tierID.String()),
			zap.Int("quantity", quantity),
		)
		return fmt.Errorf("release %d seats for show %s tier %s: %w",
			quantity, showID.String(), tierID.String(), classify(err))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("release %d seats for show %s tier %s: %w",
			quantity, showID.String(), tierID.String(), ErrLedgerBounds)
	}

	return nil
}

func (r *availabilityRepository) Set(ctx context.Context, showID, tierID uuid.UUID, remaining, total int) error {
	if remaining < 0 || remaining > total {
		return fmt.Errorf("set availability %d/%d: %w", remaining, total, ErrLedgerBounds)
	}

	query := `
		INSERT INTO seat_availability (show_id, tier_id, remaining, total, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (show_id, tier_id)
		DO UPDATE SET remaining = EXCLUDED.remaining, total = EXCLUDED.total, updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, showID, tierID, remaining, total); err != nil {
		r.log.Error("Failed to set availability",
			zap.Error(err),
			zap.String("show_id", showID.String()),
			zap.String("tier_id", tierID.String()),
		)
		return fmt.Errorf("set availability for show %s tier %s: %w", showID.String(), tierID.String(), classify(err))
	}

	return nil
}

func (r *availabilityRepository) list(ctx context.Context, query string, args ...any) ([]*entity.Availability, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list availability", zap.Error(err))
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	var out []*entity.Availability
	for rows.Next() {
		var a entity.Availability
		if err := rows.Scan(&a.ShowID, &a.TierID, &a.Remaining, &a.Total, &a.UpdatedAt); err != nil {
			r.log.Error("Failed to scan availability row", zap.Error(err))
			return nil, fmt.Errorf("scan availability row: %w", err)
		}
		out = append(out, &a)
	}

	return out, rows.Err()
}
