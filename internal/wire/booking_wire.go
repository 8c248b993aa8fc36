package wire

import (
	"cinema-seat-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// POST /api/shows/{id}/bookings - book seats by tier or by seat
	r.Post("/api/shows/{id}/bookings", bookingHandler.CreateBooking)

	r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
	// PUT /api/bookings/{id}/cancel - idempotent
	r.Put("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

	r.Get("/api/customers/{id}/bookings", bookingHandler.ListCustomerBookings)
}
