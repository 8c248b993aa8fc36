package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"

	"github.com/google/uuid"
)

type bookingRepo struct{ view }

func (r bookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	return r.do(func() error {
		if err := r.s.takeFault("bookings.create"); err != nil {
			return err
		}
		id := booking.ID
		if _, ok := r.s.bookings[id]; ok {
			return fmt.Errorf("create booking %s: %w", id, repository.ErrConflict)
		}
		for _, b := range r.s.bookings {
			if b.Code == booking.Code {
				return fmt.Errorf("create booking %s: %w", booking.Code, repository.ErrConflict)
			}
		}
		r.s.bookings[id] = *booking
		r.onRollback(func() { delete(r.s.bookings, id) })
		return nil
	})
}

func (r bookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var out *entity.Booking
	err := r.do(func() error {
		if b, ok := r.s.bookings[id]; ok {
			out = &b
		}
		return nil
	})
	return out, err
}

// FindByIDForUpdate needs no row lock here; transactions already run one at a time.
func (r bookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r bookingRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	var out []*entity.Booking
	err := r.do(func() error {
		for _, b := range r.s.bookings {
			if b.CustomerID == customerID {
				booking := b
				out = append(out, &booking)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r bookingRepo) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := r.do(func() error {
		for _, b := range r.s.bookings {
			if b.CustomerID == customerID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r bookingRepo) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.do(func() error {
		if err := r.s.takeFault("bookings.cancel"); err != nil {
			return err
		}
		b, ok := r.s.bookings[id]
		if !ok || b.Status == entity.BookingStatusCancelled {
			return fmt.Errorf("cancel booking %s: %w", id, repository.ErrConflict)
		}
		prev := b
		cancelledAt := at
		b.Status = entity.BookingStatusCancelled
		b.CancelledAt = &cancelledAt
		b.UpdatedAt = at
		r.s.bookings[id] = b
		r.onRollback(func() { r.s.bookings[id] = prev })
		return nil
	})
}

type bookedSeatRepo struct{ view }

func (r bookedSeatRepo) CreateBatch(ctx context.Context, seats []*entity.BookedSeat) error {
	if len(seats) == 0 {
		return nil
	}

	return r.do(func() error {
		if err := r.s.takeFault("booked_seats.create"); err != nil {
			return err
		}

		claimed := make(map[uuid.UUID]bool, len(seats))
		for _, s := range seats {
			if _, ok := r.s.bookedSeats[s.ID]; ok {
				return fmt.Errorf("create booked seats for booking %s: %w", s.BookingID, repository.ErrConflict)
			}
			if !s.Active {
				continue
			}
			if _, taken := r.s.activeByPosition[s.SeatPositionID]; taken || claimed[s.SeatPositionID] {
				return fmt.Errorf("create booked seats for booking %s: %w", s.BookingID, repository.ErrConflict)
			}
			claimed[s.SeatPositionID] = true
		}

		ids := make([]uuid.UUID, 0, len(seats))
		for _, s := range seats {
			r.s.bookedSeats[s.ID] = *s
			if s.Active {
				r.s.activeByPosition[s.SeatPositionID] = s.ID
			}
			ids = append(ids, s.ID)
		}
		r.onRollback(func() {
			for _, id := range ids {
				if s, ok := r.s.bookedSeats[id]; ok && s.Active {
					delete(r.s.activeByPosition, s.SeatPositionID)
				}
				delete(r.s.bookedSeats, id)
			}
		})
		return nil
	})
}

func (r bookedSeatRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookedSeat, error) {
	return r.filter(func(s entity.BookedSeat) bool { return s.BookingID == bookingID })
}

func (r bookedSeatRepo) FindActiveBySeatPositionIDs(ctx context.Context, seatPositionIDs []uuid.UUID) ([]*entity.BookedSeat, error) {
	want := make(map[uuid.UUID]bool, len(seatPositionIDs))
	for _, id := range seatPositionIDs {
		want[id] = true
	}
	return r.filter(func(s entity.BookedSeat) bool { return s.Active && want[s.SeatPositionID] })
}

func (r bookedSeatRepo) FindActiveByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.BookedSeat, error) {
	return r.filter(func(s entity.BookedSeat) bool { return s.Active && s.ShowID == showID })
}

func (r bookedSeatRepo) CountActiveByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	err := r.do(func() error {
		for _, s := range r.s.bookedSeats {
			if !s.Active || s.ShowID != showID {
				continue
			}
			if b, ok := r.s.bookings[s.BookingID]; ok && b.Status == entity.BookingStatusCancelled {
				continue
			}
			counts[s.TierID]++
		}
		return nil
	})
	return counts, err
}

func (r bookedSeatRepo) ReleaseByBookingID(ctx context.Context, bookingID uuid.UUID, at time.Time) ([]*entity.BookedSeat, error) {
	var released []*entity.BookedSeat
	err := r.do(func() error {
		if err := r.s.takeFault("booked_seats.release"); err != nil {
			return err
		}
		var prev []entity.BookedSeat
		for id, s := range r.s.bookedSeats {
			if s.BookingID != bookingID || !s.Active {
				continue
			}
			prev = append(prev, s)
			releasedAt := at
			s.Active = false
			s.ReleasedAt = &releasedAt
			r.s.bookedSeats[id] = s
			if r.s.activeByPosition[s.SeatPositionID] == id {
				delete(r.s.activeByPosition, s.SeatPositionID)
			}
			seat := s
			released = append(released, &seat)
		}
		r.onRollback(func() {
			for _, s := range prev {
				r.s.bookedSeats[s.ID] = s
				r.s.activeByPosition[s.SeatPositionID] = s.ID
			}
		})
		return nil
	})
	sortBookedSeats(released)
	return released, err
}

func (r bookedSeatRepo) filter(keep func(entity.BookedSeat) bool) ([]*entity.BookedSeat, error) {
	var out []*entity.BookedSeat
	err := r.do(func() error {
		for _, s := range r.s.bookedSeats {
			if keep(s) {
				seat := s
				out = append(out, &seat)
			}
		}
		return nil
	})
	sortBookedSeats(out)
	return out, err
}

func sortBookedSeats(seats []*entity.BookedSeat) {
	sort.Slice(seats, func(i, j int) bool {
		return seats[i].PositionNo < seats[j].PositionNo
	})
}
