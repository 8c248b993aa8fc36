package repository

import (
	"context"
	"fmt"

	"cinema-seat-booking/pkg/database"

	"go.uber.org/zap"
)

// Transactor runs fn against a Repository whose members all share one
// atomic unit of work. If fn returns an error nothing it wrote survives.
type Transactor interface {
	Atomic(ctx context.Context, fn func(repo *Repository) error) error
}

type Repository struct {
	Customer     CustomerRepository
	Movie        MovieRepository
	Show         ShowRepository
	SeatTier     SeatTierRepository
	SeatPosition SeatPositionRepository
	Availability AvailabilityRepository
	Booking      BookingRepository
	BookedSeat   BookedSeatRepository

	Transactor Transactor
}

// Atomic delegates to the configured Transactor.
func (r *Repository) Atomic(ctx context.Context, fn func(repo *Repository) error) error {
	return r.Transactor.Atomic(ctx, fn)
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return newRepository(db, &pgTransactor{db: db, log: log}, log)
}

func newRepository(q database.Querier, tx Transactor, log *zap.Logger) *Repository {
	return &Repository{
		Customer:     NewCustomerRepository(q, log),
		Movie:        NewMovieRepository(q, log),
		Show:         NewShowRepository(q, log),
		SeatTier:     NewSeatTierRepository(q, log),
		SeatPosition: NewSeatPositionRepository(q, log),
		Availability: NewAvailabilityRepository(q, log),
		Booking:      NewBookingRepository(q, log),
		BookedSeat:   NewBookedSeatRepository(q, log),
		Transactor:   tx,
	}
}

type pgTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgTransactor) Atomic(ctx context.Context, fn func(repo *Repository) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// no-op once committed
	defer tx.Rollback(ctx)

	txRepo := newRepository(tx, nil, t.log)
	txRepo.Transactor = joinTx{repo: txRepo}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

// joinTx runs nested Atomic calls inside the surrounding transaction.
type joinTx struct {
	repo *Repository
}

func (j joinTx) Atomic(ctx context.Context, fn func(repo *Repository) error) error {
	return fn(j.repo)
}
