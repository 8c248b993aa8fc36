package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/response"
	"cinema-seat-booking/pkg/lock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService reads the ledger and repairs it against the booked seats.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, showID string) (*response.AvailabilityResponse, error)
	Reconcile(ctx context.Context, showID string) (*response.ReconcileResponse, error)
	// ReconcileAll returns only the shows that needed a correction.
	ReconcileAll(ctx context.Context) ([]*response.ReconcileResponse, error)
	// StartReconciler runs ReconcileAll every interval until ctx is done.
	StartReconciler(ctx context.Context, interval time.Duration)
}

type availabilityService struct {
	repo    *repository.Repository
	catalog CatalogService
	locker  lock.Locker
	log     *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, catalog CatalogService, deps Deps, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:    repo,
		catalog: catalog,
		locker:  deps.Locker,
		log:     log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GetAvailability(ctx context.Context, showID string) (*response.AvailabilityResponse, error) {
	id, err := uuid.Parse(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: show ID %q", ErrInvalidRequest, showID)
	}

	if _, err := s.catalog.GetShow(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.repo.Availability.ListByShow(ctx, id)
	if err != nil {
		s.log.Error("Failed to read availability", zap.Error(err), zap.String("show_id", showID))
		return nil, persistence(fmt.Errorf("read availability for show %s: %w", id, err))
	}

	index, err := s.catalog.TierIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := &response.AvailabilityResponse{
		ShowID: id.String(),
		Tiers:  make([]response.TierAvailabilityResponse, 0, len(rows)),
	}
	for _, a := range rows {
		tier := response.TierAvailabilityResponse{
			TierID:    a.TierID.String(),
			Remaining: a.Remaining,
			Total:     a.Total,
			SoldOut:   a.SoldOut(),
		}
		if t, ok := index[a.TierID]; ok {
			tier.TierName = t.Name
			tier.Price = t.Price
		}
		out.Tiers = append(out.Tiers, tier)
		out.Remaining += a.Remaining
		out.Total += a.Total
	}
	out.SoldOut = out.Remaining == 0

	sort.SliceStable(out.Tiers, func(i, j int) bool {
		if out.Tiers[i].Price != out.Tiers[j].Price {
			return out.Tiers[i].Price < out.Tiers[j].Price
		}
		return out.Tiers[i].TierName < out.Tiers[j].TierName
	})

	return out, nil
}

func (s *availabilityService) Reconcile(ctx context.Context, showID string) (*response.ReconcileResponse, error) {
	id, err := uuid.Parse(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: show ID %q", ErrInvalidRequest, showID)
	}

	if _, err := s.catalog.GetShow(ctx, id); err != nil {
		return nil, err
	}

	return s.reconcile(ctx, id)
}

func (s *availabilityService) reconcile(ctx context.Context, showID uuid.UUID) (*response.ReconcileResponse, error) {
	release, err := s.locker.Acquire(ctx, showLockKey(showID.String()))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("reconcile show %s: %w", showID, ErrContention)
		}
		return nil, err
	}
	defer release()

	var corrections []response.TierCorrection
	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		corrections, err = reconcileShow(ctx, tx, showID)
		return err
	})
	if err != nil {
		s.log.Error("Failed to reconcile show", zap.Error(err), zap.String("show_id", showID.String()))
		return nil, persistence(fmt.Errorf("reconcile show %s: %w", showID, err))
	}

	for _, c := range corrections {
		s.log.Warn("Availability drift repaired",
			zap.String("show_id", showID.String()),
			zap.String("tier_id", c.TierID),
			zap.Int("remaining_was", c.RemainingWas),
			zap.Int("remaining_now", c.RemainingNow),
			zap.Int("total", c.Total),
			zap.Int("booked", c.Booked),
		)
	}

	if corrections == nil {
		corrections = []response.TierCorrection{}
	}
	return &response.ReconcileResponse{ShowID: showID.String(), Corrections: corrections}, nil
}

// reconcileShow recomputes remaining = positions - active booked seats for
// every tier of a show and overwrites ledger rows that disagree. It runs
// inside the caller's atomic unit.
func reconcileShow(ctx context.Context, tx *repository.Repository, showID uuid.UUID) ([]response.TierCorrection, error) {
	totals, err := tx.SeatPosition.CountByTier(ctx, showID)
	if err != nil {
		return nil, err
	}
	booked, err := tx.BookedSeat.CountActiveByTier(ctx, showID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Availability.ListByShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	ledger := make(map[uuid.UUID]int, len(rows))
	ledgerTotal := make(map[uuid.UUID]int, len(rows))
	for _, a := range rows {
		ledger[a.TierID] = a.Remaining
		ledgerTotal[a.TierID] = a.Total
	}

	tierIDs := make([]uuid.UUID, 0, len(totals))
	for tierID := range totals {
		tierIDs = append(tierIDs, tierID)
	}
	sort.Slice(tierIDs, func(i, j int) bool { return tierIDs[i].String() < tierIDs[j].String() })

	var corrections []response.TierCorrection
	for _, tierID := range tierIDs {
		total := totals[tierID]
		want := total - booked[tierID]
		if want < 0 {
			// more active seats than positions cannot come from the engine
			want = 0
		}

		have, ok := ledger[tierID]
		if ok && have == want && ledgerTotal[tierID] == total {
			continue
		}

		if err := tx.Availability.Set(ctx, showID, tierID, want, total); err != nil {
			return nil, err
		}
		corrections = append(corrections, response.TierCorrection{
			TierID:        tierID.String(),
			Total:         total,
			Booked:        booked[tierID],
			RemainingWas:  have,
			RemainingNow:  want,
			MissingLedger: !ok,
		})
	}

	return corrections, nil
}

func (s *availabilityService) ReconcileAll(ctx context.Context) ([]*response.ReconcileResponse, error) {
	shows, err := s.repo.Show.FindFrom(ctx, time.Time{})
	if err != nil {
		s.log.Error("Failed to list shows for reconciliation", zap.Error(err))
		return nil, persistence(fmt.Errorf("list shows: %w", err))
	}

	var out []*response.ReconcileResponse
	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.reconcile(ctx, show.ID)
		if err != nil {
			return out, err
		}
		if len(res.Corrections) > 0 {
			out = append(out, res)
		}
	}

	s.log.Info("Reconciliation finished",
		zap.Int("shows", len(shows)),
		zap.Int("corrected", len(out)),
	)
	return out, nil
}

func (s *availabilityService) StartReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info("Periodic reconciliation disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("Periodic reconciliation failed", zap.Error(err))
			}
		}
	}
}
