package usecase

import (
	"time"

	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/events"
	"cinema-seat-booking/pkg/cache"
	"cinema-seat-booking/pkg/lock"
	"cinema-seat-booking/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the infrastructure collaborators shared by every service.
// Zero values fall back to in-process defaults.
type Deps struct {
	Cache     cache.Cache
	Locker    lock.Locker
	Publisher events.Publisher
	Now       func() time.Time
}

type Service struct {
	Catalog      CatalogService
	Layout       LayoutService
	Availability AvailabilityService
	Booking      BookingService
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker(config.Booking.LockTimeout)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	catalog := NewCatalogService(repo, deps, config.Cache, log)
	availability := NewAvailabilityService(repo, catalog, deps, log)

	return &Service{
		Catalog:      catalog,
		Layout:       NewLayoutService(repo, catalog, deps, log),
		Availability: availability,
		Booking:      NewBookingService(repo, catalog, deps, config.Booking, log),
	}
}

func showLockKey(showID string) string {
	return "show:" + showID
}
