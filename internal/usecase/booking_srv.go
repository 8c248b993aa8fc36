package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/dto/response"
	"cinema-seat-booking/internal/events"
	"cinema-seat-booking/pkg/lock"
	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	// CancelBooking is idempotent: cancelling a cancelled booking returns it
	// unchanged with AlreadyCancelled set.
	CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	ListCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo       *repository.Repository
	catalog    CatalogService
	locker     lock.Locker
	publisher  events.Publisher
	now        func() time.Time
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

func NewBookingService(repo *repository.Repository, catalog CatalogService, deps Deps, config utils.BookingConfig, log *zap.Logger) BookingService {
	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &bookingService{
		repo:       repo,
		catalog:    catalog,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		now:        deps.Now,
		maxRetries: maxRetries,
		backoff:    config.RetryBackoff,
		log:        log.With(zap.String("service", "booking")),
	}
}

type tierDemand struct {
	tier     *entity.SeatTier
	quantity int
}

// bookingPlan is a parsed request: either tier demands or explicit seats.
type bookingPlan struct {
	tiers       []tierDemand
	seatIDs     []uuid.UUID
	seatNumbers []int
}

func (p bookingPlan) explicit() bool {
	return len(p.seatIDs) > 0 || len(p.seatNumbers) > 0
}

func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	modes := 0
	for _, n := range []int{len(req.Tiers), len(req.SeatPositionIDs), len(req.SeatNumbers)} {
		if n > 0 {
			modes++
		}
	}
	if modes != 1 {
		return nil, fmt.Errorf("%w: request exactly one of tiers, seat_position_ids or seat_numbers", ErrInvalidRequest)
	}

	showID, err := uuid.Parse(req.ShowID)
	if err != nil {
		return nil, fmt.Errorf("%w: show ID %q", ErrInvalidRequest, req.ShowID)
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer ID %q", ErrInvalidRequest, req.CustomerID)
	}

	show, err := s.catalog.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	if show.IsClosed(s.now()) {
		return nil, fmt.Errorf("show %s started at %s: %w", show.ID, show.ShowingAt.Format(time.RFC3339), ErrShowClosed)
	}
	if _, err := s.catalog.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	plan, err := s.parsePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, show.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var booking *entity.Booking
	var seats []*entity.BookedSeat
	err = s.withRetry(ctx, "create booking", func() error {
		var err error
		booking, seats, err = s.reserve(ctx, show, customerID, plan)
		return err
	})
	if err != nil {
		s.log.Info("Booking rejected",
			zap.String("show_id", show.ID.String()),
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("code", booking.Code),
		zap.String("show_id", show.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int("seat_count", booking.TotalSeats),
		zap.Int64("total_price", booking.TotalPrice),
	)

	s.publish(ctx, events.EventBookingConfirmed, booking, seats)
	return s.toResponse(ctx, booking, seats), nil
}

func (s *bookingService) parsePlan(ctx context.Context, req *request.CreateBookingRequest) (bookingPlan, error) {
	var plan bookingPlan

	if len(req.Tiers) > 0 {
		index := make(map[uuid.UUID]int)
		for _, item := range req.Tiers {
			tierID, err := uuid.Parse(item.TierID)
			if err != nil {
				return plan, fmt.Errorf("%w: tier ID %q", ErrInvalidRequest, item.TierID)
			}
			// the same tier twice in one request is one larger demand
			if i, ok := index[tierID]; ok {
				plan.tiers[i].quantity += item.Quantity
				continue
			}
			tier, err := s.catalog.GetTier(ctx, tierID)
			if err != nil {
				return plan, err
			}
			index[tierID] = len(plan.tiers)
			plan.tiers = append(plan.tiers, tierDemand{tier: tier, quantity: item.Quantity})
		}
		return plan, nil
	}

	if len(req.SeatPositionIDs) > 0 {
		seen := make(map[uuid.UUID]bool, len(req.SeatPositionIDs))
		for _, raw := range req.SeatPositionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return plan, fmt.Errorf("%w: seat position ID %q", ErrInvalidRequest, raw)
			}
			if seen[id] {
				return plan, fmt.Errorf("%w: seat position %s requested twice", ErrInvalidRequest, id)
			}
			seen[id] = true
			plan.seatIDs = append(plan.seatIDs, id)
		}
		return plan, nil
	}

	seen := make(map[int]bool, len(req.SeatNumbers))
	for _, no := range req.SeatNumbers {
		if seen[no] {
			return plan, fmt.Errorf("%w: seat %d requested twice", ErrInvalidRequest, no)
		}
		seen[no] = true
	}
	plan.seatNumbers = req.SeatNumbers
	return plan, nil
}

// reserve is one attempt at a booking. Ledger decrements, the booking and
// its seats commit together or not at all.
func (s *bookingService) reserve(ctx context.Context, show *entity.Show, customerID uuid.UUID, plan bookingPlan) (*entity.Booking, []*entity.BookedSeat, error) {
	now := s.now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ShowID:     show.ID,
		CustomerID: customerID,
		Status:     entity.BookingStatusConfirmed,
	}
	booking.Code = utils.GenerateBookingCode(now, booking.ID)

	var seats []*entity.BookedSeat
	err := s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var reserved []tierDemand
		fail := func(err error) error {
			s.compensate(ctx, tx, show.ID, reserved)
			return err
		}

		demands := plan.tiers
		var positions []*entity.SeatPosition
		if plan.explicit() {
			var err error
			positions, demands, err = s.resolveSeats(ctx, tx, show.ID, plan)
			if err != nil {
				return err
			}
		}

		for _, d := range demands {
			ok, err := tx.Availability.TryReserve(ctx, show.ID, d.tier.ID, d.quantity)
			if err != nil {
				return fail(err)
			}
			if !ok {
				return fail(s.insufficient(ctx, tx, show.ID, d))
			}
			reserved = append(reserved, d)
		}

		if !plan.explicit() {
			for _, d := range demands {
				free, err := tx.SeatPosition.FindFreeByTier(ctx, show.ID, d.tier.ID, d.quantity)
				if err != nil {
					return fail(err)
				}
				if len(free) < d.quantity {
					s.log.Warn("Ledger reports more seats than are free",
						zap.String("show_id", show.ID.String()),
						zap.String("tier_id", d.tier.ID.String()),
						zap.Int("requested", d.quantity),
						zap.Int("free", len(free)),
					)
					return fail(&InsufficientAvailabilityError{
						TierID:    d.tier.ID,
						TierName:  d.tier.Name,
						Requested: d.quantity,
						Remaining: len(free),
					})
				}
				positions = append(positions, free...)
			}
		}

		prices := make(map[uuid.UUID]int64, len(demands))
		for _, d := range demands {
			prices[d.tier.ID] = d.tier.Price
		}

		seats = make([]*entity.BookedSeat, len(positions))
		var total int64
		for i, p := range positions {
			price := prices[p.TierID]
			seats[i] = &entity.BookedSeat{
				BaseSimple: entity.BaseSimple{
					ID:        uuid.New(),
					CreatedAt: now,
				},
				BookingID:      booking.ID,
				SeatPositionID: p.ID,
				ShowID:         show.ID,
				TierID:         p.TierID,
				PositionNo:     p.PositionNo,
				Price:          price,
				Active:         true,
			}
			total += price
		}
		booking.TotalSeats = len(seats)
		booking.TotalPrice = total

		if err := tx.Booking.Create(ctx, booking); err != nil {
			return fail(err)
		}
		if err := tx.BookedSeat.CreateBatch(ctx, seats); err != nil {
			return fail(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return booking, seats, nil
}

// resolveSeats checks explicitly requested seats and turns them into per-tier
// demands, in order of first appearance by seat number.
func (s *bookingService) resolveSeats(ctx context.Context, tx *repository.Repository, showID uuid.UUID, plan bookingPlan) ([]*entity.SeatPosition, []tierDemand, error) {
	var positions []*entity.SeatPosition
	var err error

	if len(plan.seatIDs) > 0 {
		positions, err = tx.SeatPosition.FindByIDs(ctx, plan.seatIDs)
		if err != nil {
			return nil, nil, err
		}
		found := make(map[uuid.UUID]*entity.SeatPosition, len(positions))
		for _, p := range positions {
			found[p.ID] = p
		}
		for _, id := range plan.seatIDs {
			if p, ok := found[id]; !ok || p.ShowID != showID {
				return nil, nil, fmt.Errorf("seat position %s: %w", id, ErrSeatNotInShow)
			}
		}
	} else {
		positions, err = tx.SeatPosition.FindByShowAndNumbers(ctx, showID, plan.seatNumbers)
		if err != nil {
			return nil, nil, err
		}
		found := make(map[int]bool, len(positions))
		for _, p := range positions {
			found[p.PositionNo] = true
		}
		for _, no := range plan.seatNumbers {
			if !found[no] {
				return nil, nil, fmt.Errorf("seat %d: %w", no, ErrSeatNotInShow)
			}
		}
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].PositionNo < positions[j].PositionNo })

	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	active, err := tx.BookedSeat.FindActiveBySeatPositionIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(active) > 0 {
		sort.Slice(active, func(i, j int) bool { return active[i].PositionNo < active[j].PositionNo })
		nos := make([]int, len(active))
		for i, seat := range active {
			nos[i] = seat.PositionNo
		}
		return nil, nil, &SeatAlreadyBookedError{
			SeatPositionID: active[0].SeatPositionID,
			PositionNo:     active[0].PositionNo,
			PositionNos:    nos,
		}
	}

	index := make(map[uuid.UUID]int)
	var demands []tierDemand
	for _, p := range positions {
		if i, ok := index[p.TierID]; ok {
			demands[i].quantity++
			continue
		}
		// read through tx: the catalog's own repository is not part of this unit
		tier, err := tx.SeatTier.FindByID(ctx, p.TierID)
		if err != nil {
			return nil, nil, err
		}
		if tier == nil {
			return nil, nil, fmt.Errorf("seat tier %s: %w", p.TierID, ErrTierNotFound)
		}
		index[p.TierID] = len(demands)
		demands = append(demands, tierDemand{tier: tier, quantity: 1})
	}

	return positions, demands, nil
}

func (s *bookingService) insufficient(ctx context.Context, tx *repository.Repository, showID uuid.UUID, d tierDemand) error {
	e := &InsufficientAvailabilityError{
		TierID:    d.tier.ID,
		TierName:  d.tier.Name,
		Requested: d.quantity,
	}
	if a, err := tx.Availability.Get(ctx, showID, d.tier.ID); err == nil && a != nil {
		e.Remaining = a.Remaining
	}
	return e
}

// compensate hands back, newest first, the tiers reserved earlier in the same request.
func (s *bookingService) compensate(ctx context.Context, tx *repository.Repository, showID uuid.UUID, reserved []tierDemand) {
	for i := len(reserved) - 1; i >= 0; i-- {
		d := reserved[i]
		if err := tx.Availability.Release(ctx, showID, d.tier.ID, d.quantity); err != nil {
			// an aborted transaction rejects further statements; its rollback restores the ledger
			s.log.Warn("Compensating release failed",
				zap.String("show_id", showID.String()),
				zap.String("tier_id", d.tier.ID.String()),
				zap.Int("quantity", d.quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking ID %q", ErrInvalidRequest, bookingID)
	}

	existing, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, persistence(fmt.Errorf("get booking %s: %w", id, err))
	}
	if existing == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}

	release, err := s.acquire(ctx, existing.ShowID)
	if err != nil {
		return nil, err
	}
	defer release()

	var booking *entity.Booking
	var seats []*entity.BookedSeat
	var already bool
	err = s.withRetry(ctx, "cancel booking", func() error {
		return s.repo.Atomic(ctx, func(tx *repository.Repository) error {
			b, err := tx.Booking.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
			}

			booking = b
			already = b.IsCancelled()
			if !already {
				if err := s.cancel(ctx, tx, b); err != nil {
					return err
				}
			}

			seats, err = tx.BookedSeat.FindByBookingID(ctx, id)
			return err
		})
	})
	if err != nil {
		s.log.Error("Failed to cancel booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, err
	}

	if already {
		s.log.Info("Booking already cancelled", zap.String("booking_id", bookingID))
	} else {
		s.log.Info("Booking cancelled",
			zap.String("booking_id", bookingID),
			zap.String("show_id", booking.ShowID.String()),
			zap.Int("seat_count", len(seats)),
		)
		s.publish(ctx, events.EventBookingCancelled, booking, seats)
	}

	resp := s.toResponse(ctx, booking, seats)
	resp.AlreadyCancelled = already
	return resp, nil
}

// cancel marks b cancelled, frees its seats and gives them back to the ledger.
func (s *bookingService) cancel(ctx context.Context, tx *repository.Repository, b *entity.Booking) error {
	now := s.now()
	if err := tx.Booking.MarkCancelled(ctx, b.ID, now); err != nil {
		return err
	}

	released, err := tx.BookedSeat.ReleaseByBookingID(ctx, b.ID, now)
	if err != nil {
		return err
	}

	perTier := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, seat := range released {
		if _, ok := perTier[seat.TierID]; !ok {
			order = append(order, seat.TierID)
		}
		perTier[seat.TierID]++
	}

	drift := false
	for _, tierID := range order {
		err := tx.Availability.Release(ctx, b.ShowID, tierID, perTier[tierID])
		if errors.Is(err, repository.ErrLedgerBounds) {
			drift = true
			continue
		}
		if err != nil {
			return err
		}
	}

	if drift {
		corrections, err := reconcileShow(ctx, tx, b.ShowID)
		if err != nil {
			return err
		}
		s.log.Warn("Ledger over total on cancel, repaired from booked seats",
			zap.String("booking_id", b.ID.String()),
			zap.String("show_id", b.ShowID.String()),
			zap.Int("corrections", len(corrections)),
		)
	}

	b.Status = entity.BookingStatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking ID %q", ErrInvalidRequest, bookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, persistence(fmt.Errorf("get booking %s: %w", id, err))
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}

	seats, err := s.repo.BookedSeat.FindByBookingID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booked seats", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, persistence(fmt.Errorf("get seats of booking %s: %w", id, err))
	}

	return s.toResponse(ctx, booking, seats), nil
}

func (s *bookingService) ListCustomerBookings(ctx context.Context, customerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer ID %q", ErrInvalidRequest, customerID)
	}
	if req == nil {
		req = &request.PaginatedRequest{}
	}

	if _, err := s.catalog.GetCustomer(ctx, id); err != nil {
		return nil, err
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, id, limit, offset)
	if err != nil {
		s.log.Error("Failed to get customer bookings",
			zap.Error(err),
			zap.String("customer_id", customerID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, persistence(fmt.Errorf("get bookings of customer %s: %w", id, err))
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, id)
	if err != nil {
		s.log.Error("Failed to count customer bookings", zap.Error(err), zap.String("customer_id", customerID))
		return nil, persistence(fmt.Errorf("count bookings of customer %s: %w", id, err))
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		seats, err := s.repo.BookedSeat.FindByBookingID(ctx, b.ID)
		if err != nil {
			return nil, persistence(fmt.Errorf("get seats of booking %s: %w", b.ID, err))
		}
		data = append(data, *s.toResponse(ctx, b, seats))
	}

	return response.NewPaginatedResponse(data, req.PageNumber(), limit, total), nil
}

func (s *bookingService) acquire(ctx context.Context, showID uuid.UUID) (func(), error) {
	release, err := s.locker.Acquire(ctx, showLockKey(showID.String()))
	if err == nil {
		return release, nil
	}
	if errors.Is(err, lock.ErrTimeout) {
		s.log.Warn("Show lock wait timed out", zap.String("show_id", showID.String()))
		return nil, fmt.Errorf("show %s: %w", showID, ErrContention)
	}
	return nil, fmt.Errorf("acquire show lock %s: %w", showID, err)
}

// withRetry reruns fn while storage reports a conflict, up to maxRetries
// extra attempts with linear backoff. Exhausting the budget is ErrContention.
func (s *bookingService) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !errors.Is(err, repository.ErrConflict) {
			if classified(err) {
				return err
			}
			return persistence(fmt.Errorf("%s: %w", op, err))
		}

		if attempt >= s.maxRetries {
			s.log.Warn("Conflict retries exhausted", zap.String("op", op), zap.Int("attempts", attempt+1))
			return fmt.Errorf("%s after %d attempts: %w", op, attempt+1, ErrContention)
		}

		s.log.Debug("Storage conflict, retrying", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
		timer := time.NewTimer(s.backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// publish runs after commit. A broker failure is logged and never undoes the booking.
func (s *bookingService) publish(ctx context.Context, eventType string, b *entity.Booking, seats []*entity.BookedSeat) {
	event := events.BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		BookingCode: b.Code,
		ShowID:      b.ShowID,
		CustomerID:  b.CustomerID,
		TotalPrice:  b.TotalPrice,
		OccurredAt:  s.now(),
		Seats:       make([]events.EventSeat, len(seats)),
	}
	for i, seat := range seats {
		event.Seats[i] = events.EventSeat{
			PositionNo: seat.PositionNo,
			TierID:     seat.TierID,
			Price:      seat.Price,
		}
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.log.Error("Failed to publish booking event",
			zap.String("type", eventType),
			zap.String("booking_id", b.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *bookingService) toResponse(ctx context.Context, b *entity.Booking, seats []*entity.BookedSeat) *response.BookingResponse {
	index, err := s.catalog.TierIndex(ctx)
	if err != nil {
		s.log.Warn("Tier names unavailable for booking response", zap.Error(err))
	}

	resp := &response.BookingResponse{
		ID:          b.ID.String(),
		Code:        b.Code,
		ShowID:      b.ShowID.String(),
		CustomerID:  b.CustomerID.String(),
		Status:      string(b.Status),
		TotalSeats:  b.TotalSeats,
		TotalPrice:  b.TotalPrice,
		Seats:       make([]response.BookedSeatResponse, len(seats)),
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
	for i, seat := range seats {
		tierName := ""
		if t, ok := index[seat.TierID]; ok {
			tierName = t.Name
		}
		resp.Seats[i] = response.BookedSeatResponse{
			SeatPositionID: seat.SeatPositionID.String(),
			PositionNo:     seat.PositionNo,
			TierID:         seat.TierID.String(),
			TierName:       tierName,
			Price:          seat.Price,
		}
	}
	return resp
}
