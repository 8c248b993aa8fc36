package usecase

import (
	"context"
	"fmt"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/dto/response"
	"cinema-seat-booking/pkg/cache"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService serves the read-mostly reference data: movies, shows,
// customers and seat tiers. Everything except customers is read through the cache.
type CatalogService interface {
	GetShow(ctx context.Context, id uuid.UUID) (*entity.Show, error)
	GetMovie(ctx context.Context, id uuid.UUID) (*entity.Movie, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	GetTier(ctx context.Context, id uuid.UUID) (*entity.SeatTier, error)
	TierIndex(ctx context.Context) (map[uuid.UUID]*entity.SeatTier, error)

	ListTiers(ctx context.Context) ([]*response.TierResponse, error)
	ListShows(ctx context.Context, req *request.ListShowsRequest) ([]*response.ShowResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	shows  *cache.Loader[entity.Show]
	movies *cache.Loader[entity.Movie]
	tiers  *cache.Loader[[]entity.SeatTier]
	deps   Deps
	log    *zap.Logger
}

func NewCatalogService(repo *repository.Repository, deps Deps, config utils.CacheConfig, log *zap.Logger) CatalogService {
	log = log.With(zap.String("service", "catalog"))
	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}

	return &catalogService{
		repo:   repo,
		shows:  cache.NewLoader[entity.Show](c, config.TTL, log),
		movies: cache.NewLoader[entity.Movie](c, config.TTL, log),
		tiers:  cache.NewLoader[[]entity.SeatTier](c, config.TTL, log),
		deps:   deps,
		log:    log,
	}
}

const tiersCacheKey = "tiers"

func showCacheKey(id uuid.UUID) string  { return "show:" + id.String() }
func movieCacheKey(id uuid.UUID) string { return "movie:" + id.String() }

func (s *catalogService) GetShow(ctx context.Context, id uuid.UUID) (*entity.Show, error) {
	show, found, err := s.shows.Get(ctx, showCacheKey(id), func(ctx context.Context) (entity.Show, bool, error) {
		show, err := s.repo.Show.FindByID(ctx, id)
		if err != nil || show == nil {
			return entity.Show{}, false, err
		}
		return *show, true, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("get show %s: %w", id, err))
	}
	if !found {
		return nil, fmt.Errorf("show %s: %w", id, ErrShowNotFound)
	}
	return &show, nil
}

func (s *catalogService) GetMovie(ctx context.Context, id uuid.UUID) (*entity.Movie, error) {
	movie, found, err := s.movies.Get(ctx, movieCacheKey(id), func(ctx context.Context) (entity.Movie, bool, error) {
		movie, err := s.repo.Movie.FindByID(ctx, id)
		if err != nil || movie == nil {
			return entity.Movie{}, false, err
		}
		return *movie, true, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("get movie %s: %w", id, err))
	}
	if !found {
		return nil, fmt.Errorf("movie %s: %w", id, ErrMovieNotFound)
	}
	return &movie, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	customer, err := s.repo.Customer.FindByID(ctx, id)
	if err != nil {
		return nil, persistence(fmt.Errorf("get customer %s: %w", id, err))
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s: %w", id, ErrCustomerNotFound)
	}
	return customer, nil
}

func (s *catalogService) loadTiers(ctx context.Context) ([]entity.SeatTier, error) {
	tiers, _, err := s.tiers.Get(ctx, tiersCacheKey, func(ctx context.Context) ([]entity.SeatTier, bool, error) {
		rows, err := s.repo.SeatTier.FindAll(ctx)
		if err != nil {
			return nil, false, err
		}
		out := make([]entity.SeatTier, len(rows))
		for i, t := range rows {
			out[i] = *t
		}
		return out, len(out) > 0, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("list seat tiers: %w", err))
	}
	return tiers, nil
}

// GetTier looks the tier up in the cached tier list. A miss drops the cached
// list and retries once, so tiers added after the list was cached are found.
func (s *catalogService) GetTier(ctx context.Context, id uuid.UUID) (*entity.SeatTier, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tiers, err := s.loadTiers(ctx)
		if err != nil {
			return nil, err
		}
		for i := range tiers {
			if tiers[i].ID == id {
				return &tiers[i], nil
			}
		}
		s.tiers.Invalidate(ctx, tiersCacheKey)
	}
	return nil, fmt.Errorf("seat tier %s: %w", id, ErrTierNotFound)
}

func (s *catalogService) TierIndex(ctx context.Context) (map[uuid.UUID]*entity.SeatTier, error) {
	tiers, err := s.loadTiers(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*entity.SeatTier, len(tiers))
	for i := range tiers {
		index[tiers[i].ID] = &tiers[i]
	}
	return index, nil
}

func (s *catalogService) ListTiers(ctx context.Context) ([]*response.TierResponse, error) {
	tiers, err := s.loadTiers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*response.TierResponse, len(tiers))
	for i, t := range tiers {
		out[i] = &response.TierResponse{
			ID:    t.ID.String(),
			Name:  t.Name,
			Price: t.Price,
		}
	}
	return out, nil
}

// ListShows returns upcoming shows with their remaining seat count. With
// OnlyAvailable set, sold-out shows are left out. Availability is read from
// the ledger on every call.
func (s *catalogService) ListShows(ctx context.Context, req *request.ListShowsRequest) ([]*response.ShowResponse, error) {
	if req == nil {
		req = &request.ListShowsRequest{}
	}

	from := s.deps.Now()
	if req.IncludePast {
		from = from.AddDate(-100, 0, 0)
	}

	shows, err := s.repo.Show.FindFrom(ctx, from)
	if err != nil {
		s.log.Error("Failed to list shows", zap.Error(err))
		return nil, persistence(fmt.Errorf("list shows: %w", err))
	}
	if len(shows) == 0 {
		return []*response.ShowResponse{}, nil
	}

	ids := make([]uuid.UUID, len(shows))
	for i, show := range shows {
		ids[i] = show.ID
	}

	rows, err := s.repo.Availability.ListByShowIDs(ctx, ids)
	if err != nil {
		s.log.Error("Failed to load availability for shows", zap.Error(err))
		return nil, persistence(fmt.Errorf("list availability: %w", err))
	}

	remaining := make(map[uuid.UUID]int, len(shows))
	for _, a := range rows {
		remaining[a.ShowID] += a.Remaining
	}

	out := make([]*response.ShowResponse, 0, len(shows))
	for _, show := range shows {
		left := remaining[show.ID]
		if req.OnlyAvailable && left == 0 {
			continue
		}

		movieName := ""
		if movie, err := s.GetMovie(ctx, show.MovieID); err == nil {
			movieName = movie.Name
		} else {
			s.log.Warn("Movie lookup failed for show",
				zap.String("show_id", show.ID.String()),
				zap.Error(err),
			)
		}

		out = append(out, &response.ShowResponse{
			ID:             show.ID.String(),
			MovieID:        show.MovieID.String(),
			MovieName:      movieName,
			ShowingAt:      show.ShowingAt,
			TotalSeatCount: show.TotalSeatCount,
			Remaining:      left,
			SoldOut:        left == 0,
		})
	}

	return out, nil
}
