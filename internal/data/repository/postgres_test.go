package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/pkg/database"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to the Postgres named by TEST_DB_NAME and the usual
// DB_* variables, skipping the test when TEST_DB_NAME is unset.
func openTestDB(t *testing.T) *repository.Repository {
	t.Helper()
	name := os.Getenv("TEST_DB_NAME")
	if name == "" {
		t.Skip("TEST_DB_NAME not set")
	}

	db, err := database.InitDB(utils.DatabaseConfig{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		Name:     name,
		User:     envOr("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASS"),
		MaxConns: 4,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(context.Background(), db))
	return repository.NewRepository(db, zap.NewNop())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type fixture struct {
	show      *entity.Show
	tier      *entity.SeatTier
	positions []*entity.SeatPosition
	customer  *entity.Customer
}

func newFixture(t *testing.T, repo *repository.Repository, seats int) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	movie := &entity.Movie{BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now}, Name: "Inception"}
	require.NoError(t, repo.Movie.Create(ctx, movie))

	tier := &entity.SeatTier{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Name:       "Tier " + uuid.NewString()[:8],
		Price:      10,
	}
	require.NoError(t, repo.SeatTier.Create(ctx, tier))

	show := &entity.Show{
		BaseSimple:     entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		MovieID:        movie.ID,
		ShowingAt:      now.Add(24 * time.Hour),
		TotalSeatCount: seats,
	}
	require.NoError(t, repo.Show.Create(ctx, show))

	positions := make([]*entity.SeatPosition, seats)
	for i := range positions {
		positions[i] = &entity.SeatPosition{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			ShowID:     show.ID,
			TierID:     tier.ID,
			PositionNo: i + 1,
		}
	}
	require.NoError(t, repo.SeatPosition.CreateBatch(ctx, positions))
	require.NoError(t, repo.Availability.Create(ctx, &entity.Availability{
		ShowID: show.ID, TierID: tier.ID, Remaining: seats, Total: seats, UpdatedAt: now,
	}))

	customer := &entity.Customer{BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now}, Name: "Ashish Koshy"}
	require.NoError(t, repo.Customer.Create(ctx, customer))

	return fixture{show: show, tier: tier, positions: positions, customer: customer}
}

func TestPostgresLedgerBounds(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, repo, 2)

	ok, err := repo.Availability.TryReserve(ctx, f.show.ID, f.tier.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Availability.TryReserve(ctx, f.show.ID, f.tier.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Availability.Release(ctx, f.show.ID, f.tier.ID, 2))
	err = repo.Availability.Release(ctx, f.show.ID, f.tier.ID, 1)
	require.ErrorIs(t, err, repository.ErrLedgerBounds)

	_, err = repo.Availability.TryReserve(ctx, f.show.ID, f.tier.ID, 0)
	require.ErrorIs(t, err, repository.ErrInvalidQuantity)
}

func TestPostgresAtomicRollsBack(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, repo, 2)
	boom := errors.New("boom")

	err := repo.Atomic(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Availability.TryReserve(ctx, f.show.ID, f.tier.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := repo.Availability.Get(ctx, f.show.ID, f.tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Remaining)
}

func TestPostgresActiveSeatIsUnique(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, repo, 1)
	now := time.Now().UTC()

	book := func() (*entity.Booking, error) {
		b := &entity.Booking{
			Base:       entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Code:       utils.GenerateBookingCode(now, uuid.New()),
			ShowID:     f.show.ID,
			CustomerID: f.customer.ID,
			TotalSeats: 1,
			TotalPrice: 10,
			Status:     entity.BookingStatusConfirmed,
		}
		err := repo.Atomic(ctx, func(tx *repository.Repository) error {
			if err := tx.Booking.Create(ctx, b); err != nil {
				return err
			}
			return tx.BookedSeat.CreateBatch(ctx, []*entity.BookedSeat{{
				BaseSimple:     entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
				BookingID:      b.ID,
				SeatPositionID: f.positions[0].ID,
				ShowID:         f.show.ID,
				TierID:         f.tier.ID,
				PositionNo:     1,
				Price:          10,
				Active:         true,
			}})
		})
		return b, err
	}

	first, err := book()
	require.NoError(t, err)

	_, err = book()
	require.ErrorIs(t, err, repository.ErrConflict)

	released, err := repo.BookedSeat.ReleaseByBookingID(ctx, first.ID, now)
	require.NoError(t, err)
	require.Len(t, released, 1)

	_, err = book()
	require.NoError(t, err)

	counts, err := repo.BookedSeat.CountActiveByTier(ctx, f.show.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[f.tier.ID])
}
