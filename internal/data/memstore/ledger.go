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

type availabilityRepo struct{ view }

// put writes a row and journals the previous state.
func (r availabilityRepo) put(a entity.Availability) {
	key := availabilityKey{showID: a.ShowID, tierID: a.TierID}
	prev, existed := r.s.availability[key]
	r.s.availability[key] = a
	r.onRollback(func() {
		if existed {
			r.s.availability[key] = prev
		} else {
			delete(r.s.availability, key)
		}
	})
}

func (r availabilityRepo) Create(ctx context.Context, a *entity.Availability) error {
	if a.Remaining < 0 || a.Remaining > a.Total {
		return fmt.Errorf("create availability %d/%d: %w", a.Remaining, a.Total, repository.ErrLedgerBounds)
	}
	return r.do(func() error {
		key := availabilityKey{showID: a.ShowID, tierID: a.TierID}
		if _, ok := r.s.availability[key]; ok {
			return fmt.Errorf("create availability for show %s tier %s: %w", a.ShowID, a.TierID, repository.ErrConflict)
		}
		r.put(*a)
		return nil
	})
}

func (r availabilityRepo) Get(ctx context.Context, showID, tierID uuid.UUID) (*entity.Availability, error) {
	var out *entity.Availability
	err := r.do(func() error {
		if a, ok := r.s.availability[availabilityKey{showID: showID, tierID: tierID}]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

func (r availabilityRepo) ListByShow(ctx context.Context, showID uuid.UUID) ([]*entity.Availability, error) {
	return r.ListByShowIDs(ctx, []uuid.UUID{showID})
}

func (r availabilityRepo) ListByShowIDs(ctx context.Context, showIDs []uuid.UUID) ([]*entity.Availability, error) {
	want := make(map[uuid.UUID]bool, len(showIDs))
	for _, id := range showIDs {
		want[id] = true
	}

	var out []*entity.Availability
	err := r.do(func() error {
		for _, a := range r.s.availability {
			if want[a.ShowID] {
				row := a
				out = append(out, &row)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShowID != out[j].ShowID {
			return out[i].ShowID.String() < out[j].ShowID.String()
		}
		return out[i].TierID.String() < out[j].TierID.String()
	})
	return out, err
}

func (r availabilityRepo) TryReserve(ctx context.Context, showID, tierID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, repository.ErrInvalidQuantity
	}

	var ok bool
	err := r.do(func() error {
		if err := r.s.takeFault("seat_availability.reserve"); err != nil {
			return err
		}
		a, found := r.s.availability[availabilityKey{showID: showID, tierID: tierID}]
		if !found || a.Remaining < quantity {
			return nil
		}
		a.Remaining -= quantity
		a.UpdatedAt = time.Now()
		r.put(a)
		ok = true
		return nil
	})
	return ok, err
}

func (r availabilityRepo) Release(ctx context.Context, showID, tierID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return repository.ErrInvalidQuantity
	}

	return r.do(func() error {
		if err := r.s.takeFault("seat_availability.release"); err != nil {
			return err
		}
		a, found := r.s.availability[availabilityKey{showID: showID, tierID: tierID}]
		if !found || a.Remaining+quantity > a.Total {
			return fmt.Errorf("release %d seats for show %s tier %s: %w",
				quantity, showID, tierID, repository.ErrLedgerBounds)
		}
		a.Remaining += quantity
		a.UpdatedAt = time.Now()
		r.put(a)
		return nil
	})
}

func (r availabilityRepo) Set(ctx context.Context, showID, tierID uuid.UUID, remaining, total int) error {
	if remaining < 0 || remaining > total {
		return fmt.Errorf("set availability %d/%d: %w", remaining, total, repository.ErrLedgerBounds)
	}

	return r.do(func() error {
		r.put(entity.Availability{
			ShowID:    showID,
			TierID:    tierID,
			Remaining: remaining,
			Total:     total,
			UpdatedAt: time.Now(),
		})
		return nil
	})
}
