package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/dto/response"
	"cinema-seat-booking/internal/events"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_TwoSeatsThenSoldOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	first, err := env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)
	require.Len(t, first.Seats, 1)
	assert.Equal(t, 40, first.Seats[0].PositionNo)

	second, err := env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)
	require.Len(t, second.Seats, 1)
	assert.Equal(t, 50, second.Seats[0].PositionNo)

	_, err = env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
	require.ErrorIs(t, err, ErrInsufficientAvailability)

	var insufficient *InsufficientAvailabilityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "General", insufficient.TierName)
	assert.Equal(t, 1, insufficient.Requested)
	assert.Equal(t, 0, insufficient.Remaining)

	assert.Equal(t, 0, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_PriceIsSumOfTierPrices(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t,
		alloc{"General", []int{1, 2, 3}},
		alloc{"Vip", []int{10, 11, 12}},
	)

	booking, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("Vip", 2)))
	require.NoError(t, err)

	assert.Equal(t, int64(40), booking.TotalPrice)
	assert.Equal(t, 2, booking.TotalSeats)
	assert.Equal(t, string(entity.BookingStatusConfirmed), booking.Status)
	for _, seat := range booking.Seats {
		assert.Equal(t, int64(20), seat.Price)
		assert.Equal(t, "Vip", seat.TierName)
	}
	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	assert.Equal(t, 3, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_AllOrNothingAcrossTiers(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{name: "failing tier first", order: []string{"General", "Vip"}},
		{name: "failing tier last", order: []string{"Vip", "General"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			showID := env.scheduleShow(t,
				alloc{"General", []int{40, 50}},
				alloc{"Vip", []int{1, 2, 3, 4, 5}},
			)

			want := map[string]int{"General": 3, "Vip": 5}
			var items []request.TierQuantity
			for _, tier := range tt.order {
				items = append(items, env.qty(tier, want[tier]))
			}

			_, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, items...))

			var insufficient *InsufficientAvailabilityError
			require.ErrorAs(t, err, &insufficient)
			assert.Equal(t, "General", insufficient.TierName)
			assert.Equal(t, 2, insufficient.Remaining)

			assert.Equal(t, 2, env.remaining(t, showID, "General"))
			assert.Equal(t, 5, env.remaining(t, showID, "Vip"))
			env.requireConsistent(t, showID)
		})
	}
}

func TestCreateBooking_ConcurrentSameExplicitSeat(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Booking.CreateBooking(context.Background(), env.seatRequest(showID, 40))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var taken *SeatAlreadyBookedError
		require.ErrorAs(t, err, &taken)
		assert.Equal(t, 40, taken.PositionNo)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_ConcurrentLastSeat(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"Super Vip", []int{65}})

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("Super Vip", 1)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, soldOut := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientAvailability):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, soldOut)
	assert.Equal(t, 0, env.remaining(t, showID, "Super Vip"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_ExplicitSeatsAcrossTiers(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t,
		alloc{"General", []int{40, 50}},
		alloc{"Vip", []int{55}},
		alloc{"Couple", []int{60}},
	)

	booking, err := env.svc.Booking.CreateBooking(context.Background(), env.seatRequest(showID, 60, 40))
	require.NoError(t, err)

	assert.Equal(t, int64(40), booking.TotalPrice)
	require.Len(t, booking.Seats, 2)
	assert.Equal(t, 40, booking.Seats[0].PositionNo)
	assert.Equal(t, 60, booking.Seats[1].PositionNo)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	assert.Equal(t, 0, env.remaining(t, showID, "Couple"))
	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_BySeatPositionID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"Vip", []int{55, 56}})
	otherShow := env.scheduleShow(t, alloc{"Vip", []int{55}})

	positions, err := env.repo.SeatPosition.FindByShowID(ctx, showID)
	require.NoError(t, err)
	foreign, err := env.repo.SeatPosition.FindByShowID(ctx, otherShow)
	require.NoError(t, err)

	booking, err := env.svc.Booking.CreateBooking(ctx, &request.CreateBookingRequest{
		ShowID:          showID.String(),
		CustomerID:      env.customer.ID.String(),
		SeatPositionIDs: []string{positions[1].ID.String()},
	})
	require.NoError(t, err)
	require.Len(t, booking.Seats, 1)
	assert.Equal(t, 56, booking.Seats[0].PositionNo)

	_, err = env.svc.Booking.CreateBooking(ctx, &request.CreateBookingRequest{
		ShowID:          showID.String(),
		CustomerID:      env.customer.ID.String(),
		SeatPositionIDs: []string{foreign[0].ID.String()},
	})
	require.ErrorIs(t, err, ErrSeatNotInShow)
	env.requireConsistent(t, showID)
}

func TestCreateBooking_ExplicitSeatAlreadyTakenIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}}, alloc{"Vip", []int{55}})

	_, err := env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 50))
	require.NoError(t, err)

	_, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 55, 50))
	var taken *SeatAlreadyBookedError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, 50, taken.PositionNo)

	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_DuplicateTiersAreMerged(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{1, 2, 3}})

	booking, err := env.svc.Booking.CreateBooking(context.Background(),
		env.tierRequest(showID, env.qty("General", 1), env.qty("General", 1)))
	require.NoError(t, err)

	assert.Equal(t, 2, booking.TotalSeats)
	assert.Equal(t, int64(20), booking.TotalPrice)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
}

func TestCreateBooking_RejectedRequests(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	tests := []struct {
		name string
		req  *request.CreateBookingRequest
		want error
	}{
		{
			name: "unknown show",
			req:  env.tierRequest(uuid.New(), env.qty("General", 1)),
			want: ErrShowNotFound,
		},
		{
			name: "unknown customer",
			req: &request.CreateBookingRequest{
				ShowID:     showID.String(),
				CustomerID: uuid.NewString(),
				Tiers:      []request.TierQuantity{env.qty("General", 1)},
			},
			want: ErrCustomerNotFound,
		},
		{
			name: "unknown tier",
			req: env.tierRequest(showID, request.TierQuantity{
				TierID:   uuid.NewString(),
				Quantity: 1,
			}),
			want: ErrTierNotFound,
		},
		{
			name: "tier not provisioned for show",
			req:  env.tierRequest(showID, env.qty("Couple", 1)),
			want: ErrInsufficientAvailability,
		},
		{
			name: "tiers and seats together",
			req: &request.CreateBookingRequest{
				ShowID:      showID.String(),
				CustomerID:  env.customer.ID.String(),
				Tiers:       []request.TierQuantity{env.qty("General", 1)},
				SeatNumbers: []int{40},
			},
			want: ErrInvalidRequest,
		},
		{
			name: "nothing requested",
			req: &request.CreateBookingRequest{
				ShowID:     showID.String(),
				CustomerID: env.customer.ID.String(),
			},
			want: ErrInvalidRequest,
		},
		{
			name: "zero quantity",
			req:  env.tierRequest(showID, env.qty("General", 0)),
			want: ErrInvalidRequest,
		},
		{
			name: "seat outside the show",
			req:  env.seatRequest(showID, 99),
			want: ErrSeatNotInShow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Booking.CreateBooking(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 2, env.remaining(t, showID, "General"))
		})
	}
}

func TestCreateBooking_ValidationErrorCarriesFields(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Booking.CreateBooking(context.Background(), &request.CreateBookingRequest{
		ShowID:     "not-a-uuid",
		CustomerID: env.customer.ID.String(),
		Tiers:      []request.TierQuantity{env.qty("General", 1)},
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "show_id")
}

func TestCreateBooking_ShowClosed(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40}})

	env.clock.Advance(2 * time.Hour)

	_, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 1)))
	require.ErrorIs(t, err, ErrShowClosed)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
}

func TestCreateBooking_PersistenceFailureLeavesNoTrace(t *testing.T) {
	for _, op := range []string{"bookings.create", "booked_seats.create", "commit"} {
		t.Run(op, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			showID := env.scheduleShow(t, alloc{"General", []int{40, 50}}, alloc{"Vip", []int{55}})

			env.store.FailOn(op, errors.New("disk full"))

			_, err := env.svc.Booking.CreateBooking(ctx,
				env.tierRequest(showID, env.qty("Vip", 1), env.qty("General", 2)))
			require.ErrorIs(t, err, ErrPersistence)

			assert.Equal(t, 2, env.remaining(t, showID, "General"))
			assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
			n, err := env.repo.Booking.CountByCustomerID(ctx, env.customer.ID)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Empty(t, env.publisher.Types())
			env.requireConsistent(t, showID)

			_, err = env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 2)))
			require.NoError(t, err)
			env.requireConsistent(t, showID)
		})
	}
}

func TestCreateBooking_RetriesConflicts(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	env.store.FailOn("booked_seats.create", repository.ErrConflict)

	booking, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, booking.TotalSeats)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCreateBooking_ConflictBudgetExhausted(t *testing.T) {
	env := newTestEnv(t, func(c *utils.Config) { c.Booking.MaxRetries = 0 })
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	env.store.FailOn("booked_seats.create", repository.ErrConflict)

	_, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 1)))
	require.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 2, env.remaining(t, showID, "General"))
}

func TestCreateBooking_LockTimeoutIsContention(t *testing.T) {
	env := newTestEnv(t, func(c *utils.Config) { c.Booking.LockTimeout = 20 * time.Millisecond })
	showID := env.scheduleShow(t, alloc{"General", []int{40}})

	release, err := env.locker.Acquire(context.Background(), showLockKey(showID.String()))
	require.NoError(t, err)
	defer release()

	_, err = env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 1)))
	require.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
}

func TestCreateBooking_PublishesConfirmedEvent(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	booking, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 2)))
	require.NoError(t, err)

	require.Len(t, env.publisher.events, 1)
	event := env.publisher.events[0]
	assert.Equal(t, events.EventBookingConfirmed, event.Type)
	assert.Equal(t, booking.ID, event.BookingID.String())
	assert.Equal(t, showID, event.ShowID)
	assert.Equal(t, int64(20), event.TotalPrice)
	assert.Len(t, event.Seats, 2)
}

func TestCreateBooking_PublisherFailureDoesNotFailBooking(t *testing.T) {
	env := newTestEnv(t)
	showID := env.scheduleShow(t, alloc{"General", []int{40}})
	env.publisher.err = errors.New("broker down")

	_, err := env.svc.Booking.CreateBooking(context.Background(), env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)
	assert.Equal(t, 0, env.remaining(t, showID, "General"))
}

func TestCancelBooking_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}}, alloc{"Vip", []int{55}})

	booking, err := env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40, 55))
	require.NoError(t, err)
	require.Equal(t, 1, env.remaining(t, showID, "General"))
	require.Equal(t, 0, env.remaining(t, showID, "Vip"))

	cancelled, err := env.svc.Booking.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.False(t, cancelled.AlreadyCancelled)
	assert.Equal(t, string(entity.BookingStatusCancelled), cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 2, env.remaining(t, showID, "General"))
	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	env.requireConsistent(t, showID)

	again, err := env.svc.Booking.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCancelled)
	assert.Equal(t, 2, env.remaining(t, showID, "General"))
	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	env.requireConsistent(t, showID)

	assert.Equal(t, []string{events.EventBookingConfirmed, events.EventBookingCancelled}, env.publisher.Types())
}

func TestCancelBooking_FreesSeatForRebooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40}})

	booking, err := env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40))
	require.NoError(t, err)

	_, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40))
	require.ErrorIs(t, err, ErrSeatAlreadyBooked)

	_, err = env.svc.Booking.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)

	rebooked, err := env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40))
	require.NoError(t, err)
	assert.NotEqual(t, booking.ID, rebooked.ID)
	env.requireConsistent(t, showID)

	old, err := env.svc.Booking.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCancelled), old.Status)
}

func TestCancelBooking_FailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	booking, err := env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)

	env.store.FailOn("seat_availability.release", errors.New("disk full"))

	_, err = env.svc.Booking.CancelBooking(ctx, booking.ID)
	require.ErrorIs(t, err, ErrPersistence)

	got, err := env.svc.Booking.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusConfirmed), got.Status)
	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCancelBooking_RepairsLedgerAboveTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}})

	booking, err := env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
	require.NoError(t, err)

	// drift: the ledger forgot the booking
	require.NoError(t, env.repo.Availability.Set(ctx, showID, env.tiers["General"].ID, 2, 2))

	_, err = env.svc.Booking.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestCancelBooking_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Booking.CancelBooking(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrBookingNotFound)

	_, err = env.svc.Booking.CancelBooking(context.Background(), "nope")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestListCustomerBookings_Paginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{1, 2, 3, 4, 5}})

	for i := 0; i < 3; i++ {
		_, err := env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("General", 1)))
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	page, err := env.svc.Booking.ListCustomerBookings(ctx, env.customer.ID.String(), &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	// newest first
	assert.Equal(t, 3, page.Data[0].Seats[0].PositionNo)

	last, err := env.svc.Booking.ListCustomerBookings(ctx, env.customer.ID.String(), &request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, last.Data, 1)
	assert.Equal(t, 1, last.Data[0].Seats[0].PositionNo)

	_, err = env.svc.Booking.ListCustomerBookings(ctx, uuid.NewString(), nil)
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCreateBooking_ReportsEveryTakenSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50, 60}})

	_, err := env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 60))
	require.NoError(t, err)
	_, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40))
	require.NoError(t, err)

	_, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 60, 50, 40))
	var taken *SeatAlreadyBookedError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, 40, taken.PositionNo)
	assert.Equal(t, []int{40, 60}, taken.PositionNos)
	assert.EqualError(t, err, "seats 40, 60 are already booked")

	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	env.requireConsistent(t, showID)
}

func TestBookingEngine_WithoutCatalogCache(t *testing.T) {
	env := newTestEnv(t, withoutCache)
	ctx := context.Background()
	showID := env.scheduleShow(t, alloc{"General", []int{40, 50}}, alloc{"Vip", []int{55, 60}})
	wait := 5 * time.Second

	var byTier, byNumber, byID, cancelled *response.BookingResponse
	var err error

	finishWithin(t, wait, func() {
		byTier, err = env.svc.Booking.CreateBooking(ctx, env.tierRequest(showID, env.qty("Vip", 1)))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), byTier.TotalPrice)
	assert.Equal(t, 55, byTier.Seats[0].PositionNo)
	assert.Equal(t, "Vip", byTier.Seats[0].TierName)

	finishWithin(t, wait, func() {
		byNumber, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 40))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), byNumber.TotalPrice)

	positions, err := env.repo.SeatPosition.FindByShowAndNumbers(ctx, showID, []int{50})
	require.NoError(t, err)
	require.Len(t, positions, 1)
	finishWithin(t, wait, func() {
		byID, err = env.svc.Booking.CreateBooking(ctx, &request.CreateBookingRequest{
			ShowID:          showID.String(),
			CustomerID:      env.customer.ID.String(),
			SeatPositionIDs: []string{positions[0].ID.String()},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 50, byID.Seats[0].PositionNo)

	finishWithin(t, wait, func() {
		_, err = env.svc.Booking.CreateBooking(ctx, env.seatRequest(showID, 50))
	})
	require.ErrorIs(t, err, ErrSeatAlreadyBooked)

	finishWithin(t, wait, func() {
		cancelled, err = env.svc.Booking.CancelBooking(ctx, byNumber.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCancelled), cancelled.Status)

	assert.Equal(t, 1, env.remaining(t, showID, "General"))
	assert.Equal(t, 1, env.remaining(t, showID, "Vip"))
	env.requireConsistent(t, showID)
}
