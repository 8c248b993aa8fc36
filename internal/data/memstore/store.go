// Package memstore keeps every repository in process memory. Atomic units
// hold the store lock for their whole duration and undo their writes when
// the callback fails, which gives the same all-or-nothing behaviour as a
// Postgres transaction.
package memstore

import (
	"context"
	"sync"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"

	"github.com/google/uuid"
)

type availabilityKey struct {
	showID uuid.UUID
	tierID uuid.UUID
}

type Store struct {
	mu sync.Mutex

	customers    map[uuid.UUID]entity.Customer
	movies       map[uuid.UUID]entity.Movie
	shows        map[uuid.UUID]entity.Show
	tiers        map[uuid.UUID]entity.SeatTier
	positions    map[uuid.UUID]entity.SeatPosition
	availability map[availabilityKey]entity.Availability
	bookings     map[uuid.UUID]entity.Booking
	bookedSeats  map[uuid.UUID]entity.BookedSeat
	// active booked seat per seat position, the in-memory unique index
	activeByPosition map[uuid.UUID]uuid.UUID

	faults map[string]error
}

func New() *Store {
	return &Store{
		customers:        make(map[uuid.UUID]entity.Customer),
		movies:           make(map[uuid.UUID]entity.Movie),
		shows:            make(map[uuid.UUID]entity.Show),
		tiers:            make(map[uuid.UUID]entity.SeatTier),
		positions:        make(map[uuid.UUID]entity.SeatPosition),
		availability:     make(map[availabilityKey]entity.Availability),
		bookings:         make(map[uuid.UUID]entity.Booking),
		bookedSeats:      make(map[uuid.UUID]entity.BookedSeat),
		activeByPosition: make(map[uuid.UUID]uuid.UUID),
		faults:           make(map[string]error),
	}
}

// Repository returns repositories whose single calls are each atomic.
func (s *Store) Repository() *repository.Repository {
	repo := s.build(view{s: s})
	repo.Transactor = transactor{s: s}
	return repo
}

// FailOn makes the next operation named op return err once. Operation
// names are "<table>.<verb>", e.g. "booked_seats.create" or "commit".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// takeFault must be called with mu held.
func (s *Store) takeFault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

func (s *Store) build(v view) *repository.Repository {
	return &repository.Repository{
		Customer:     customerRepo{v},
		Movie:        movieRepo{v},
		Show:         showRepo{v},
		SeatTier:     seatTierRepo{v},
		SeatPosition: seatPositionRepo{v},
		Availability: availabilityRepo{v},
		Booking:      bookingRepo{v},
		BookedSeat:   bookedSeatRepo{v},
	}
}

type transactor struct {
	s *Store
}

func (t transactor) Atomic(ctx context.Context, fn func(repo *repository.Repository) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	tx := &txState{}
	repo := t.s.build(view{s: t.s, tx: tx})
	repo.Transactor = joined{repo: repo}

	if err := fn(repo); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	if err := t.s.takeFault("commit"); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type joined struct {
	repo *repository.Repository
}

func (j joined) Atomic(ctx context.Context, fn func(repo *repository.Repository) error) error {
	return fn(j.repo)
}

type txState struct {
	undo []func()
}

func (tx *txState) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// view is the common base of every repository. Outside a transaction each
// call takes the store lock itself; inside one the transactor already holds it.
type view struct {
	s  *Store
	tx *txState
}

func (v view) do(fn func() error) error {
	if v.tx == nil {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn()
}

func (v view) onRollback(undo func()) {
	if v.tx != nil {
		v.tx.undo = append(v.tx.undo, undo)
	}
}
