package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/dto/response"
	"cinema-seat-booking/pkg/cache"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LayoutService owns each show's fixed seat map.
type LayoutService interface {
	GetLayout(ctx context.Context, showID string) (*response.LayoutResponse, error)
	IsPositionInTier(ctx context.Context, showID, tierID uuid.UUID, positionNo int) (bool, error)
	ScheduleShow(ctx context.Context, req *request.ScheduleShowRequest) (*response.ShowResponse, error)
}

type layoutService struct {
	repo      *repository.Repository
	catalog   CatalogService
	positions *cache.Loader[[]entity.SeatPosition]
	now       func() time.Time
	log       *zap.Logger
}

func NewLayoutService(repo *repository.Repository, catalog CatalogService, deps Deps, log *zap.Logger) LayoutService {
	log = log.With(zap.String("service", "layout"))
	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &layoutService{
		repo:    repo,
		catalog: catalog,
		// seat maps never change once provisioned, so they live as long as the show
		positions: cache.NewLoader[[]entity.SeatPosition](c, 0, log),
		now:       now,
		log:       log,
	}
}

func layoutCacheKey(showID uuid.UUID) string { return "layout:" + showID.String() }

func (s *layoutService) seatMap(ctx context.Context, showID uuid.UUID) ([]entity.SeatPosition, error) {
	positions, _, err := s.positions.Get(ctx, layoutCacheKey(showID), func(ctx context.Context) ([]entity.SeatPosition, bool, error) {
		rows, err := s.repo.SeatPosition.FindByShowID(ctx, showID)
		if err != nil {
			return nil, false, err
		}
		out := make([]entity.SeatPosition, len(rows))
		for i, p := range rows {
			out[i] = *p
		}
		return out, len(out) > 0, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("load seat map for show %s: %w", showID, err))
	}
	return positions, nil
}

func (s *layoutService) GetLayout(ctx context.Context, showID string) (*response.LayoutResponse, error) {
	id, err := uuid.Parse(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: show ID %q", ErrInvalidRequest, showID)
	}

	if _, err := s.catalog.GetShow(ctx, id); err != nil {
		return nil, err
	}

	positions, err := s.seatMap(ctx, id)
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedSeat.FindActiveByShowID(ctx, id)
	if err != nil {
		s.log.Error("Failed to load booked seats", zap.Error(err), zap.String("show_id", showID))
		return nil, persistence(fmt.Errorf("load booked seats for show %s: %w", id, err))
	}
	taken := make(map[uuid.UUID]bool, len(booked))
	for _, b := range booked {
		taken[b.SeatPositionID] = true
	}

	index, err := s.catalog.TierIndex(ctx)
	if err != nil {
		return nil, err
	}

	byTier := make(map[uuid.UUID]*response.TierLayoutResponse)
	var order []uuid.UUID
	for _, p := range positions {
		tl, ok := byTier[p.TierID]
		if !ok {
			tl = &response.TierLayoutResponse{TierID: p.TierID.String()}
			tier := index[p.TierID]
			if tier == nil {
				if tier, err = s.catalog.GetTier(ctx, p.TierID); err != nil {
					return nil, err
				}
			}
			tl.TierName = tier.Name
			tl.Price = tier.Price
			byTier[p.TierID] = tl
			order = append(order, p.TierID)
		}
		tl.Seats = append(tl.Seats, response.SeatResponse{
			ID:         p.ID.String(),
			PositionNo: p.PositionNo,
			Booked:     taken[p.ID],
		})
	}

	// tiers appear in order of their lowest seat number
	sort.SliceStable(order, func(i, j int) bool {
		return byTier[order[i]].Seats[0].PositionNo < byTier[order[j]].Seats[0].PositionNo
	})

	out := &response.LayoutResponse{
		ShowID: id.String(),
		Tiers:  make([]response.TierLayoutResponse, 0, len(order)),
	}
	for _, tierID := range order {
		out.Tiers = append(out.Tiers, *byTier[tierID])
	}
	return out, nil
}

func (s *layoutService) IsPositionInTier(ctx context.Context, showID, tierID uuid.UUID, positionNo int) (bool, error) {
	if _, err := s.catalog.GetShow(ctx, showID); err != nil {
		return false, err
	}

	positions, err := s.seatMap(ctx, showID)
	if err != nil {
		return false, err
	}

	for _, p := range positions {
		if p.PositionNo == positionNo {
			return p.TierID == tierID, nil
		}
	}
	return false, nil
}

// ScheduleShow creates a show together with its seat positions and one ledger
// row per tier, all in one atomic unit.
func (s *layoutService) ScheduleShow(ctx context.Context, req *request.ScheduleShowRequest) (*response.ShowResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Schedule show validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	hasSeats := len(req.Seats) > 0
	hasCopy := req.CopyLayoutFrom != ""
	if hasSeats == hasCopy {
		return nil, fmt.Errorf("%w: exactly one of seats or copy_layout_from is required", ErrInvalidLayout)
	}

	movieID, err := uuid.Parse(req.MovieID)
	if err != nil {
		return nil, fmt.Errorf("%w: movie ID %q", ErrInvalidRequest, req.MovieID)
	}
	movie, err := s.catalog.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.ShowingAt.After(now) {
		return nil, fmt.Errorf("%w: showing_at must be in the future", ErrInvalidRequest)
	}

	var allocations []request.SeatAllocation
	if hasCopy {
		allocations, err = s.copyAllocations(ctx, req.CopyLayoutFrom)
	} else {
		allocations = req.Seats
	}
	if err != nil {
		return nil, err
	}

	show := &entity.Show{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		MovieID:    movieID,
		ShowingAt:  req.ShowingAt,
	}

	positions, totals, err := s.buildPositions(ctx, show.ID, allocations, now)
	if err != nil {
		return nil, err
	}
	show.TotalSeatCount = len(positions)

	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		if err := tx.Show.Create(ctx, show); err != nil {
			return err
		}
		if err := tx.SeatPosition.CreateBatch(ctx, positions); err != nil {
			return err
		}
		for _, t := range totals {
			err := tx.Availability.Create(ctx, &entity.Availability{
				ShowID:    show.ID,
				TierID:    t.tierID,
				Remaining: t.count,
				Total:     t.count,
				UpdatedAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to schedule show", zap.Error(err), zap.String("movie_id", req.MovieID))
		return nil, persistence(fmt.Errorf("schedule show: %w", err))
	}

	s.log.Info("Show scheduled",
		zap.String("show_id", show.ID.String()),
		zap.String("movie_id", movieID.String()),
		zap.Time("showing_at", show.ShowingAt),
		zap.Int("seats", show.TotalSeatCount),
	)

	return &response.ShowResponse{
		ID:             show.ID.String(),
		MovieID:        movieID.String(),
		MovieName:      movie.Name,
		ShowingAt:      show.ShowingAt,
		TotalSeatCount: show.TotalSeatCount,
		Remaining:      show.TotalSeatCount,
		SoldOut:        show.TotalSeatCount == 0,
	}, nil
}

func (s *layoutService) copyAllocations(ctx context.Context, sourceID string) ([]request.SeatAllocation, error) {
	id, err := uuid.Parse(sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: copy_layout_from %q", ErrInvalidRequest, sourceID)
	}
	if _, err := s.catalog.GetShow(ctx, id); err != nil {
		return nil, err
	}

	positions, err := s.seatMap(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: show %s has no seats to copy", ErrInvalidLayout, id)
	}

	byTier := make(map[uuid.UUID]int)
	var out []request.SeatAllocation
	for _, p := range positions {
		i, ok := byTier[p.TierID]
		if !ok {
			i = len(out)
			byTier[p.TierID] = i
			out = append(out, request.SeatAllocation{TierID: p.TierID.String()})
		}
		out[i].Positions = append(out[i].Positions, p.PositionNo)
	}
	return out, nil
}

type tierTotal struct {
	tierID uuid.UUID
	count  int
}

func (s *layoutService) buildPositions(ctx context.Context, showID uuid.UUID, allocations []request.SeatAllocation, now time.Time) ([]*entity.SeatPosition, []tierTotal, error) {
	seen := make(map[int]bool)
	counts := make(map[uuid.UUID]int)
	var totals []tierTotal
	var positions []*entity.SeatPosition

	for _, a := range allocations {
		tierID, err := uuid.Parse(a.TierID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: tier ID %q", ErrInvalidRequest, a.TierID)
		}
		if _, err := s.catalog.GetTier(ctx, tierID); err != nil {
			return nil, nil, err
		}
		if len(a.Positions) == 0 {
			return nil, nil, fmt.Errorf("%w: tier %s has no positions", ErrInvalidLayout, tierID)
		}

		if _, ok := counts[tierID]; !ok {
			totals = append(totals, tierTotal{tierID: tierID})
		}
		for _, no := range a.Positions {
			if no <= 0 {
				return nil, nil, fmt.Errorf("%w: position %d must be positive", ErrInvalidLayout, no)
			}
			if seen[no] {
				return nil, nil, fmt.Errorf("%w: position %d assigned twice", ErrInvalidLayout, no)
			}
			seen[no] = true
			counts[tierID]++
			positions = append(positions, &entity.SeatPosition{
				BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
				ShowID:     showID,
				TierID:     tierID,
				PositionNo: no,
			})
		}
	}

	if len(positions) == 0 {
		return nil, nil, fmt.Errorf("%w: no seats", ErrInvalidLayout)
	}
	for i := range totals {
		totals[i].count = counts[totals[i].tierID]
	}
	return positions, totals, nil
}
