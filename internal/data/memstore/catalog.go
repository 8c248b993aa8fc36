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

type customerRepo struct{ view }

func (r customerRepo) Create(ctx context.Context, customer *entity.Customer) error {
	return r.do(func() error {
		id := customer.ID
		if _, ok := r.s.customers[id]; ok {
			return fmt.Errorf("create customer %s: %w", id, repository.ErrConflict)
		}
		r.s.customers[id] = *customer
		r.onRollback(func() { delete(r.s.customers, id) })
		return nil
	})
}

func (r customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	var out *entity.Customer
	err := r.do(func() error {
		if c, ok := r.s.customers[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

type movieRepo struct{ view }

func (r movieRepo) Create(ctx context.Context, movie *entity.Movie) error {
	return r.do(func() error {
		id := movie.ID
		if _, ok := r.s.movies[id]; ok {
			return fmt.Errorf("create movie %s: %w", id, repository.ErrConflict)
		}
		r.s.movies[id] = *movie
		r.onRollback(func() { delete(r.s.movies, id) })
		return nil
	})
}

func (r movieRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error) {
	var out *entity.Movie
	err := r.do(func() error {
		if m, ok := r.s.movies[id]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

type showRepo struct{ view }

func (r showRepo) Create(ctx context.Context, show *entity.Show) error {
	return r.do(func() error {
		if err := r.s.takeFault("shows.create"); err != nil {
			return err
		}
		id := show.ID
		if _, ok := r.s.shows[id]; ok {
			return fmt.Errorf("create show %s: %w", id, repository.ErrConflict)
		}
		r.s.shows[id] = *show
		r.onRollback(func() { delete(r.s.shows, id) })
		return nil
	})
}

func (r showRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Show, error) {
	var out *entity.Show
	err := r.do(func() error {
		if s, ok := r.s.shows[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r showRepo) FindFrom(ctx context.Context, from time.Time) ([]*entity.Show, error) {
	var out []*entity.Show
	err := r.do(func() error {
		for _, s := range r.s.shows {
			if !s.ShowingAt.Before(from) {
				show := s
				out = append(out, &show)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ShowingAt.Equal(out[j].ShowingAt) {
			return out[i].ShowingAt.Before(out[j].ShowingAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

type seatTierRepo struct{ view }

func (r seatTierRepo) Create(ctx context.Context, tier *entity.SeatTier) error {
	return r.do(func() error {
		id := tier.ID
		if _, ok := r.s.tiers[id]; ok {
			return fmt.Errorf("create seat tier %s: %w", id, repository.ErrConflict)
		}
		for _, t := range r.s.tiers {
			if t.Name == tier.Name {
				return fmt.Errorf("create seat tier %s: %w", tier.Name, repository.ErrConflict)
			}
		}
		r.s.tiers[id] = *tier
		r.onRollback(func() { delete(r.s.tiers, id) })
		return nil
	})
}

func (r seatTierRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatTier, error) {
	var out *entity.SeatTier
	err := r.do(func() error {
		if t, ok := r.s.tiers[id]; ok {
			out = &t
		}
		return nil
	})
	return out, err
}

func (r seatTierRepo) FindAll(ctx context.Context) ([]*entity.SeatTier, error) {
	var out []*entity.SeatTier
	err := r.do(func() error {
		for _, t := range r.s.tiers {
			tier := t
			out = append(out, &tier)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

type seatPositionRepo struct{ view }

func (r seatPositionRepo) CreateBatch(ctx context.Context, positions []*entity.SeatPosition) error {
	if len(positions) == 0 {
		return nil
	}
	return r.do(func() error {
		taken := make(map[uuid.UUID]map[int]bool)
		for _, p := range r.s.positions {
			if taken[p.ShowID] == nil {
				taken[p.ShowID] = make(map[int]bool)
			}
			taken[p.ShowID][p.PositionNo] = true
		}
		for _, p := range positions {
			if _, ok := r.s.positions[p.ID]; ok || taken[p.ShowID][p.PositionNo] {
				return fmt.Errorf("create seat position %d: %w", p.PositionNo, repository.ErrConflict)
			}
			if taken[p.ShowID] == nil {
				taken[p.ShowID] = make(map[int]bool)
			}
			taken[p.ShowID][p.PositionNo] = true
		}

		ids := make([]uuid.UUID, 0, len(positions))
		for _, p := range positions {
			r.s.positions[p.ID] = *p
			ids = append(ids, p.ID)
		}
		r.onRollback(func() {
			for _, id := range ids {
				delete(r.s.positions, id)
			}
		})
		return nil
	})
}

func (r seatPositionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatPosition, error) {
	var out *entity.SeatPosition
	err := r.do(func() error {
		if p, ok := r.s.positions[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r seatPositionRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.SeatPosition, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(p entity.SeatPosition) bool { return want[p.ID] })
}

func (r seatPositionRepo) FindByShowAndNumbers(ctx context.Context, showID uuid.UUID, numbers []int) ([]*entity.SeatPosition, error) {
	want := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	return r.filter(func(p entity.SeatPosition) bool { return p.ShowID == showID && want[p.PositionNo] })
}

func (r seatPositionRepo) FindByShowID(ctx context.Context, showID uuid.UUID) ([]*entity.SeatPosition, error) {
	return r.filter(func(p entity.SeatPosition) bool { return p.ShowID == showID })
}

func (r seatPositionRepo) FindFreeByTier(ctx context.Context, showID, tierID uuid.UUID, limit int) ([]*entity.SeatPosition, error) {
	var out []*entity.SeatPosition
	err := r.do(func() error {
		for _, p := range r.s.positions {
			if p.ShowID != showID || p.TierID != tierID {
				continue
			}
			if _, booked := r.s.activeByPosition[p.ID]; booked {
				continue
			}
			pos := p
			out = append(out, &pos)
		}
		return nil
	})
	sortPositions(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r seatPositionRepo) CountByTier(ctx context.Context, showID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	err := r.do(func() error {
		for _, p := range r.s.positions {
			if p.ShowID == showID {
				counts[p.TierID]++
			}
		}
		return nil
	})
	return counts, err
}

func (r seatPositionRepo) filter(keep func(entity.SeatPosition) bool) ([]*entity.SeatPosition, error) {
	var out []*entity.SeatPosition
	err := r.do(func() error {
		for _, p := range r.s.positions {
			if keep(p) {
				pos := p
				out = append(out, &pos)
			}
		}
		return nil
	})
	sortPositions(out)
	return out, err
}

func sortPositions(positions []*entity.SeatPosition) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].PositionNo < positions[j].PositionNo
	})
}
