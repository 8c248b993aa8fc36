package wire

import (
	"cinema-seat-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireShow(r chi.Router, showHandler *adaptor.ShowHandler) {
	r.Get("/api/tiers", showHandler.ListTiers)

	// GET /api/shows?available=true - hide sold out shows
	r.Get("/api/shows", showHandler.ListShows)
	r.Get("/api/shows/{id}/availability", showHandler.GetAvailability)
	r.Get("/api/shows/{id}/seats", showHandler.GetLayout)

	r.Route("/api/admin/shows", func(r chi.Router) {
		r.Post("/", showHandler.ScheduleShow)
		r.Post("/{id}/reconcile", showHandler.Reconcile)
	})
}
