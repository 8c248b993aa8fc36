package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrShowNotFound             = errors.New("show not found")
	ErrShowClosed               = errors.New("show has already started")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrSeatAlreadyBooked        = errors.New("seat already booked")
	ErrContention               = errors.New("too much contention, try again")
	ErrPersistence              = errors.New("persistence failure")

	ErrCustomerNotFound = errors.New("customer not found")
	ErrMovieNotFound    = errors.New("movie not found")
	ErrTierNotFound     = errors.New("seat tier not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrSeatNotInShow    = errors.New("seat does not belong to show")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidLayout    = errors.New("invalid seat layout")
)

// InsufficientAvailabilityError names the first tier that could not be reserved.
type InsufficientAvailabilityError struct {
	TierID    uuid.UUID
	TierName  string
	Requested int
	Remaining int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability for tier %s: requested %d, remaining %d",
		e.TierName, e.Requested, e.Remaining)
}

func (e *InsufficientAvailabilityError) Unwrap() error {
	return ErrInsufficientAvailability
}

// SeatAlreadyBookedError lists every requested seat that is held by an
// active booking. SeatPositionID and PositionNo describe the lowest of them.
type SeatAlreadyBookedError struct {
	SeatPositionID uuid.UUID
	PositionNo     int
	PositionNos    []int
}

func (e *SeatAlreadyBookedError) Error() string {
	if len(e.PositionNos) > 1 {
		nos := make([]string, len(e.PositionNos))
		for i, no := range e.PositionNos {
			nos[i] = strconv.Itoa(no)
		}
		return fmt.Sprintf("seats %s are already booked", strings.Join(nos, ", "))
	}
	return fmt.Sprintf("seat %d is already booked", e.PositionNo)
}

func (e *SeatAlreadyBookedError) Unwrap() error {
	return ErrSeatAlreadyBooked
}

// ValidationError carries per-field messages for a rejected request DTO.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + utils.FormatValidationErrors(e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func validationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// classified reports whether err already carries one of the service sentinels.
func classified(err error) bool {
	for _, target := range []error{
		ErrShowNotFound,
		ErrShowClosed,
		ErrInsufficientAvailability,
		ErrSeatAlreadyBooked,
		ErrCustomerNotFound,
		ErrMovieNotFound,
		ErrTierNotFound,
		ErrBookingNotFound,
		ErrSeatNotInShow,
		ErrInvalidRequest,
		ErrInvalidLayout,
		ErrContention,
		ErrPersistence,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
