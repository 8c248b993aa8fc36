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

type ShowHandler struct {
	catalog      usecase.CatalogService
	layout       usecase.LayoutService
	availability usecase.AvailabilityService
	log          *zap.Logger
}

func NewShowHandler(service *usecase.Service, log *zap.Logger) *ShowHandler {
	return &ShowHandler{
		catalog:      service.Catalog,
		layout:       service.Layout,
		availability: service.Availability,
		log:          log.With(zap.String("handler", "show")),
	}
}

// ListShows handles GET /api/shows?available=true
func (h *ShowHandler) ListShows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.ListShowsRequest{
		OnlyAvailable: utils.ParseBool(query.Get("available")),
		IncludePast:   utils.ParseBool(query.Get("include_past")),
	}

	shows, err := h.catalog.ListShows(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "list shows")
		return
	}

	utils.ResponseSuccess(w, "success", shows)
}

// GetAvailability handles GET /api/shows/{id}/availability
func (h *ShowHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.availability.GetAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}

// GetLayout handles GET /api/shows/{id}/seats
func (h *ShowHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.layout.GetLayout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get layout")
		return
	}

	utils.ResponseSuccess(w, "success", layout)
}

// ListTiers handles GET /api/tiers
func (h *ShowHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.catalog.ListTiers(r.Context())
	if err != nil {
		writeError(w, h.log, err, "list tiers")
		return
	}

	utils.ResponseSuccess(w, "success", tiers)
}

// ScheduleShow handles POST /api/admin/shows
func (h *ShowHandler) ScheduleShow(w http.ResponseWriter, r *http.Request) {
	var req request.ScheduleShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	show, err := h.layout.ScheduleShow(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "schedule show")
		return
	}

	utils.ResponseCreated(w, "Show scheduled", show)
}

// Reconcile handles POST /api/admin/shows/{id}/reconcile
func (h *ShowHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.availability.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "reconcile show")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
