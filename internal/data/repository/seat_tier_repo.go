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

type SeatTierRepository interface {
	Create(ctx context.Context, tier *entity.SeatTier) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatTier, error)
	FindAll(ctx context.Context) ([]*entity.SeatTier, error)
}

type seatTierRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewSeatTierRepository(db database.Querier, log *zap.Logger) SeatTierRepository {
	return &seatTierRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat_tier")),
	}
}

func (r *seatTierRepository) Create(ctx context.Context, tier *entity.SeatTier) error {
	query := `INSERT INTO seat_tiers (id, name, price, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, tier.ID, tier.Name, tier.Price, tier.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create seat tier",
			zap.Error(err),
			zap.String("name", tier.Name),
		)
		return fmt.Errorf("create seat tier %s: %w", tier.Name, classify(err))
	}

	return nil
}

func (r *seatTierRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatTier, error) {
	query := `SELECT id, name, price, created_at FROM seat_tiers WHERE id = $1`

	var tier entity.SeatTier
	err := r.db.QueryRow(ctx, query, id).Scan(&tier.ID, &tier.Name, &tier.Price, &tier.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat tier by ID",
			zap.Error(err),
			zap.String("tier_id", id.String()),
		)
		return nil, fmt.Errorf("find seat tier by ID %s: %w", id.String(), err)
	}

	return &tier, nil
}

func (r *seatTierRepository) FindAll(ctx context.Context) ([]*entity.SeatTier, error) {
	query := `SELECT id, name, price, created_at FROM seat_tiers ORDER BY price, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find seat tiers", zap.Error(err))
		return nil, fmt.Errorf("find seat tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*entity.SeatTier
	for rows.Next() {
		var tier entity.SeatTier
		if err := rows.Scan(&tier.ID, &tier.Name, &tier.Price, &tier.CreatedAt); err != nil {
			r.log.Error("Failed to scan seat tier row", zap.Error(err))
			return nil, fmt.Errorf("scan seat tier row: %w", err)
		}
		tiers = append(tiers, &tier)
	}

	return tiers, rows.Err()
}
