package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTiers are the seat tiers every cinema starts with.
var DefaultTiers = []struct {
	Name  string
	Price int64
}{
	{"General", 10},
	{"Vip", 20},
	{"Couple", 30},
	{"Super Vip", 40},
}

// SeedTiers creates the default tiers that do not exist yet and returns all
// tiers by name.
func SeedTiers(ctx context.Context, repo *repository.Repository, now time.Time) (map[string]*entity.SeatTier, error) {
	existing, err := repo.SeatTier.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seat tiers: %w", err)
	}

	byName := make(map[string]*entity.SeatTier, len(DefaultTiers))
	for _, t := range existing {
		byName[t.Name] = t
	}

	for _, def := range DefaultTiers {
		if _, ok := byName[def.Name]; ok {
			continue
		}
		tier := &entity.SeatTier{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			Name:       def.Name,
			Price:      def.Price,
		}
		if err := repo.SeatTier.Create(ctx, tier); err != nil {
			return nil, fmt.Errorf("create seat tier %s: %w", def.Name, err)
		}
		byName[def.Name] = tier
	}

	return byName, nil
}

// SeedDemo loads a customer, a movie and a show starting in a day with seats
// 40 and 50 General, 55 Vip, 60 Couple and 65 Super Vip. It is meant for an
// empty store and skips the show when tiers already existed.
func SeedDemo(ctx context.Context, repo *repository.Repository, svc *Service, now time.Time, log *zap.Logger) error {
	before, err := repo.SeatTier.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list seat tiers: %w", err)
	}

	tiers, err := SeedTiers(ctx, repo, now)
	if err != nil {
		return err
	}
	if len(before) > 0 {
		log.Info("Seed skipped, store already has tiers", zap.Int("tiers", len(before)))
		return nil
	}

	customer := &entity.Customer{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Name:       "Ashish Koshy",
	}
	if err := repo.Customer.Create(ctx, customer); err != nil {
		return fmt.Errorf("create demo customer: %w", err)
	}

	movie := &entity.Movie{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Name:       "Inception",
	}
	if err := repo.Movie.Create(ctx, movie); err != nil {
		return fmt.Errorf("create demo movie: %w", err)
	}

	show, err := svc.Layout.ScheduleShow(ctx, &request.ScheduleShowRequest{
		MovieID:   movie.ID.String(),
		ShowingAt: now.Add(24 * time.Hour).Truncate(time.Minute),
		Seats: []request.SeatAllocation{
			{TierID: tiers["General"].ID.String(), Positions: []int{40, 50}},
			{TierID: tiers["Vip"].ID.String(), Positions: []int{55}},
			{TierID: tiers["Couple"].ID.String(), Positions: []int{60}},
			{TierID: tiers["Super Vip"].ID.String(), Positions: []int{65}},
		},
	})
	if err != nil {
		return fmt.Errorf("schedule demo show: %w", err)
	}

	log.Info("Demo data seeded",
		zap.String("customer_id", customer.ID.String()),
		zap.String("movie_id", movie.ID.String()),
		zap.String("show_id", show.ID),
	)
	return nil
}
