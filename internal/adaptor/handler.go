package adaptor

import (
	"errors"
	"net/http"

	"cinema-seat-booking/internal/usecase"
	"cinema-seat-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	Show    *ShowHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		Show:    NewShowHandler(service, log),
	}
}

// writeError maps service errors onto the JSON envelope.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validation *usecase.ValidationError
	var insufficient *usecase.InsufficientAvailabilityError
	var taken *usecase.SeatAlreadyBookedError

	switch {
	case errors.As(err, &validation):
		log.Warn(operation+" validation failed", zap.Any("errors", validation.Fields))
		utils.ResponseBadRequest(w, "Validation failed", validation.Fields)

	case errors.As(err, &insufficient):
		log.Info(operation+" failed - insufficient availability", zap.Error(err))
		utils.ResponseConflict(w, err.Error(), map[string]any{
			"tier_id":   insufficient.TierID.String(),
			"tier_name": insufficient.TierName,
			"requested": insufficient.Requested,
			"remaining": insufficient.Remaining,
		})

	case errors.As(err, &taken):
		log.Info(operation+" failed - seat already booked", zap.Error(err))
		utils.ResponseConflict(w, err.Error(), map[string]any{
			"seat_position_id": taken.SeatPositionID.String(),
			"position_no":      taken.PositionNo,
			"position_nos":     taken.PositionNos,
		})

	case errors.Is(err, usecase.ErrShowNotFound),
		errors.Is(err, usecase.ErrCustomerNotFound),
		errors.Is(err, usecase.ErrMovieNotFound),
		errors.Is(err, usecase.ErrTierNotFound),
		errors.Is(err, usecase.ErrBookingNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrShowClosed):
		log.Info(operation+" failed - show closed", zap.Error(err))
		utils.ResponseGone(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, usecase.ErrInvalidLayout),
		errors.Is(err, usecase.ErrSeatNotInShow):
		log.Warn("Invalid input for "+operation, zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrContention):
		log.Warn(operation+" failed - contention", zap.Error(err))
		utils.ResponseServiceUnavailable(w, err.Error())

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
