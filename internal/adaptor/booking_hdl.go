package adaptor

import (
	"encoding/json"
	"net/http"

	"cinema-seat-booking/internal/dto/request"
	"cinema-seat-booking/internal/usecase"
	"cinema-seat-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/shows/{id}/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	req.ShowID = chi.URLParam(r, "id")

	booking, err := h.service.CreateBooking(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking confirmed", booking)
}

// CancelBooking handles PUT /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.CancelBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "cancel booking")
		return
	}

	message := "Booking cancelled"
	if booking.AlreadyCancelled {
		message = "Booking was already cancelled"
	}
	utils.ResponseSuccess(w, message, booking)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ListCustomerBookings handles GET /api/customers/{id}/bookings
func (h *BookingHandler) ListCustomerBookings(w http.ResponseWriter, r *http.Request) {
	req := request.PageFromQuery(r.URL.Query())

	bookings, err := h.service.ListCustomerBookings(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.log, err, "list customer bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}
