package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/memstore"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/events"
	"cinema-seat-booking/pkg/cache"
	"cinema-seat-booking/pkg/lock"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store     *memstore.Store
	repo      *repository.Repository
	svc       *Service
	locker    *lock.LocalLocker
	publisher *recordingPublisher
	clock     *testClock
	tiers     map[string]*entity.SeatTier
	customer  *entity.Customer
	movie     *entity.Movie
}

type alloc struct {
	tier      string
	positions []int
}

func newTestEnv(t *testing.T, opts ...func(*utils.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	config := &utils.Config{
		Cache: utils.CacheConfig{TTL: time.Minute},
		Booking: utils.BookingConfig{
			LockTimeout:  2 * time.Second,
			MaxRetries:   3,
			RetryBackoff: time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(config)
	}

	store := memstore.New()
	repo := store.Repository()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	locker := lock.NewLocalLocker(config.Booking.LockTimeout)
	publisher := &recordingPublisher{}

	var catalogCache cache.Cache = cache.NewMemoryCache()
	if config.Cache.Driver == "none" {
		catalogCache = cache.Nop{}
	}

	svc := NewService(repo, Deps{
		Cache:     catalogCache,
		Locker:    locker,
		Publisher: publisher,
		Now:       clock.Now,
	}, config, zap.NewNop())

	tiers, err := SeedTiers(ctx, repo, clock.Now())
	require.NoError(t, err)

	customer := &entity.Customer{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: clock.Now()},
		Name:       "Ashish Koshy",
	}
	require.NoError(t, repo.Customer.Create(ctx, customer))

	movie := &entity.Movie{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: clock.Now()},
		Name:       "Inception",
	}
	require.NoError(t, repo.Movie.Create(ctx, movie))

	return &testEnv{
		store:     store,
		repo:      repo,
		svc:       svc,
		locker:    locker,
		publisher: publisher,
		clock:     clock,
		tiers:     tiers,
		customer:  customer,
		movie:     movie,
	}
}

// withoutCache sends every catalog read to the store.
func withoutCache(c *utils.Config) { c.Cache.Driver = "none" }

// finishWithin fails the test instead of hanging when fn never returns.
func finishWithin(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("still running after %s", d)
	}
}

func (e *testEnv) scheduleShow(t *testing.T, allocations ...alloc) uuid.UUID {
	t.Helper()

	req := &request.ScheduleShowRequest{
		MovieID:   e.movie.ID.String(),
		ShowingAt: e.clock.Now().Add(2 * time.Hour),
	}
	for _, a := range allocations {
		req.Seats = append(req.Seats, request.SeatAllocation{
			TierID:    e.tiers[a.tier].ID.String(),
			Positions: a.positions,
		})
	}

	show, err := e.svc.Layout.ScheduleShow(context.Background(), req)
	require.NoError(t, err)
	return uuid.MustParse(show.ID)
}

func (e *testEnv) tierRequest(showID uuid.UUID, items ...request.TierQuantity) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ShowID:     showID.String(),
		CustomerID: e.customer.ID.String(),
		Tiers:      items,
	}
}

func (e *testEnv) seatRequest(showID uuid.UUID, numbers ...int) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ShowID:      showID.String(),
		CustomerID:  e.customer.ID.String(),
		SeatNumbers: numbers,
	}
}

func (e *testEnv) qty(tier string, n int) request.TierQuantity {
	return request.TierQuantity{TierID: e.tiers[tier].ID.String(), Quantity: n}
}

func (e *testEnv) remaining(t *testing.T, showID uuid.UUID, tier string) int {
	t.Helper()
	a, err := e.repo.Availability.Get(context.Background(), showID, e.tiers[tier].ID)
	require.NoError(t, err)
	require.NotNil(t, a, "no ledger row for tier %s", tier)
	return a.Remaining
}

// requireConsistent checks the ledger against the seat map and the booked seats.
func (e *testEnv) requireConsistent(t *testing.T, showID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	totals, err := e.repo.SeatPosition.CountByTier(ctx, showID)
	require.NoError(t, err)
	booked, err := e.repo.BookedSeat.CountActiveByTier(ctx, showID)
	require.NoError(t, err)
	rows, err := e.repo.Availability.ListByShow(ctx, showID)
	require.NoError(t, err)

	require.Len(t, rows, len(totals))
	for _, row := range rows {
		require.Equal(t, totals[row.TierID], row.Total, "total for tier %s", row.TierID)
		require.Equal(t, row.Total, row.Remaining+booked[row.TierID], "remaining + booked for tier %s", row.TierID)
		require.GreaterOrEqual(t, row.Remaining, 0)
	}

	active, err := e.repo.BookedSeat.FindActiveByShowID(ctx, showID)
	require.NoError(t, err)
	seen := make(map[uuid.UUID]bool, len(active))
	for _, seat := range active {
		require.False(t, seen[seat.SeatPositionID], "seat %d claimed twice", seat.PositionNo)
		seen[seat.SeatPositionID] = true
	}
}
