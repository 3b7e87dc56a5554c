/*
handlers.go - HTTP API handlers for the appointment booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Public:
    GET    /api/agencies                     List agencies
    GET    /api/agencies/{id}/slots          List open slots for an agency
    POST   /api/slots/{id}/book              Book a slot
    GET    /api/appointments/view            View appointment by token
    POST   /api/appointments/cancel          Cancel by token
    POST   /api/appointments/reschedule      Move to another slot by token
    GET    /api/pages                        List content pages
    GET    /api/pages/{slug}                 Get one content page

  Admin (JWT-guarded):
    POST   /api/admin/login                  Exchange password for a token
    GET    /api/admin/appointments           List appointments, filterable
    POST   /api/admin/appointments/{id}/accept
    POST   /api/admin/appointments/{id}/reject
    POST   /api/admin/slots                  Create slots over a time range
    DELETE /api/admin/slots/{id}             Delete an open slot
    POST   /api/admin/agencies               Create agency
    PUT    /api/admin/agencies/{id}          Update agency
    DELETE /api/admin/agencies/{id}          Delete agency with its open slots
    POST   /api/admin/pages                  Create/update content page
    DELETE /api/admin/pages/{id}             Delete content page
    GET    /api/admin/export                 CSV export of appointments
    GET    /api/admin/dashboard              Status counts and utilization

ERROR HANDLING:
  Domain errors map to HTTP statuses:
  - 400: Validation errors, invalid input
  - 401: Invalid or superseded token
  - 404: Resource not found
  - 409: Conflict (slot race lost, held slot, finalized appointment)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Admin login and JWT middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/osengo/booking-engine/booking"
	"github.com/osengo/booking-engine/config"
	"github.com/osengo/booking-engine/logging"
	"github.com/osengo/booking-engine/metrics"
	"github.com/osengo/booking-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Lifecycle *booking.Lifecycle

	cfg    *config.Config
	logger *logging.Logger
}

// NewHandler creates a new handler over the given store and lifecycle.
func NewHandler(store *sqlite.Store, lifecycle *booking.Lifecycle, cfg *config.Config, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = config.Load()
	}
	return &Handler{
		Store:     store,
		Lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
	}
}

// =============================================================================
// PUBLIC: AGENCIES AND SLOTS
// =============================================================================

// ListAgencies returns all agencies.
func (h *Handler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.Store.ListAgencies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list agencies", err)
		return
	}

	dtos := make([]AgencyDTO, len(agencies))
	for i, a := range agencies {
		dtos[i] = toAgencyDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAgencySlots returns the open slots of one agency, soonest first.
func (h *Handler) ListAgencySlots(w http.ResponseWriter, r *http.Request) {
	agencyID := booking.AgencyID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetAgency(r.Context(), agencyID); err != nil {
		writeDomainError(w, err, "Failed to get agency")
		return
	}

	slots, err := h.Lifecycle.Registry().ListAvailable(r.Context(), agencyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list slots", err)
		return
	}

	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PUBLIC: BOOKING AND SELF-SERVICE
// =============================================================================

// Book reserves a slot and creates a pending appointment.
// POST /api/slots/{id}/book
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	slotID := booking.SlotID(chi.URLParam(r, "id"))

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Surname == "" || req.Email == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name, surname, email and phone are required", nil)
		return
	}

	appt, token, err := h.Lifecycle.Book(r.Context(), slotID, booking.AppointmentDraft{Owner: req.owner()})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotUnavailable):
			metrics.ReservationsTotal.WithLabelValues("lost").Inc()
		case booking.IsNotFound(err):
			// fall through to the status mapping below
		default:
			metrics.ReservationsTotal.WithLabelValues("error").Inc()
		}
		writeDomainError(w, err, "Failed to book slot")
		return
	}

	metrics.ReservationsTotal.WithLabelValues("won").Inc()
	metrics.LifecycleEventsTotal.WithLabelValues(string(booking.EventCreated)).Inc()

	writeJSON(w, http.StatusCreated, BookResponse{
		Appointment: toAppointmentDTO(*appt),
		Token:       token,
	})
}

// ViewAppointment resolves a token to the full appointment context.
// GET /api/appointments/view?token=...
func (h *Handler) ViewAppointment(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	appt, slot, agency, err := h.Lifecycle.View(r.Context(), token)
	if err != nil {
		writeDomainError(w, err, "Failed to view appointment")
		return
	}

	dto := toAppointmentDTO(*appt)
	if slot != nil {
		s := toSlotDTO(*slot)
		dto.Slot = &s
	}
	if agency != nil {
		a := toAgencyDTO(*agency)
		dto.Agency = &a
	}
	writeJSON(w, http.StatusOK, dto)
}

// CancelAppointment cancels by token and releases the slot.
// POST /api/appointments/cancel
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	appt, err := h.Lifecycle.Cancel(r.Context(), req.Token)
	if err != nil {
		writeDomainError(w, err, "Failed to cancel appointment")
		return
	}

	metrics.LifecycleEventsTotal.WithLabelValues(string(booking.EventCancelled)).Inc()
	writeJSON(w, http.StatusOK, toAppointmentDTO(*appt))
}

// RescheduleAppointment moves the appointment to another open slot. The
// response carries the replacement token; the one just used is now dead.
// POST /api/appointments/reschedule
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.NewSlotID == "" {
		writeError(w, http.StatusBadRequest, "new_slot_id is required", nil)
		return
	}

	appt, token, err := h.Lifecycle.Reschedule(r.Context(), req.Token, booking.SlotID(req.NewSlotID))
	if err != nil {
		writeDomainError(w, err, "Failed to reschedule appointment")
		return
	}

	metrics.LifecycleEventsTotal.WithLabelValues(string(booking.EventRescheduled)).Inc()
	writeJSON(w, http.StatusOK, BookResponse{
		Appointment: toAppointmentDTO(*appt),
		Token:       token,
	})
}

// =============================================================================
// PUBLIC: CONTENT PAGES
// =============================================================================

// ListPages returns all content pages.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.Store.ListPages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pages", err)
		return
	}

	dtos := make([]PageDTO, len(pages))
	for i, p := range pages {
		dtos[i] = PageDTO{ID: p.ID, Slug: p.Slug, Title: p.Title, Content: p.Content}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPage returns one content page by slug.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := h.Store.GetPageBySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err, "Failed to get page")
		return
	}
	writeJSON(w, http.StatusOK, PageDTO{ID: page.ID, Slug: page.Slug, Title: page.Title, Content: page.Content})
}

// =============================================================================
// ADMIN: APPOINTMENT REVIEW
// =============================================================================

// ListAppointments returns appointments for review, creation order.
// GET /api/admin/appointments?status=pending_review&agency_id=...
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	filter := booking.AppointmentFilter{
		Status:   booking.AppointmentStatus(r.URL.Query().Get("status")),
		AgencyID: booking.AgencyID(r.URL.Query().Get("agency_id")),
	}

	appts, err := h.Store.ListAppointments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list appointments", err)
		return
	}

	dtos := make([]AppointmentDTO, len(appts))
	for i, a := range appts {
		dtos[i] = toAppointmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AcceptAppointment confirms a pending appointment.
// POST /api/admin/appointments/{id}/accept
func (h *Handler) AcceptAppointment(w http.ResponseWriter, r *http.Request) {
	id := booking.AppointmentID(chi.URLParam(r, "id"))

	appt, err := h.Lifecycle.Accept(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to accept appointment")
		return
	}

	metrics.LifecycleEventsTotal.WithLabelValues(string(booking.EventConfirmed)).Inc()
	writeJSON(w, http.StatusOK, toAppointmentDTO(*appt))
}

// RejectAppointment rejects an appointment and releases its slot.
// POST /api/admin/appointments/{id}/reject
func (h *Handler) RejectAppointment(w http.ResponseWriter, r *http.Request) {
	id := booking.AppointmentID(chi.URLParam(r, "id"))

	appt, err := h.Lifecycle.Reject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to reject appointment")
		return
	}

	metrics.LifecycleEventsTotal.WithLabelValues(string(booking.EventRejected)).Inc()
	writeJSON(w, http.StatusOK, toAppointmentDTO(*appt))
}

// =============================================================================
// ADMIN: SLOT MANAGEMENT
// =============================================================================

// CreateSlots subdivides a time range into bookable slots.
// POST /api/admin/slots
func (h *Handler) CreateSlots(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start format (use RFC3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end format (use RFC3339)", err)
		return
	}
	if req.WindowMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "window_minutes must be positive", nil)
		return
	}

	window := time.Duration(req.WindowMinutes) * time.Minute
	slots, err := h.Lifecycle.Registry().CreateRange(r.Context(), booking.AgencyID(req.AgencyID), start, end, window)
	if err != nil {
		writeDomainError(w, err, "Failed to create slots")
		return
	}

	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// DeleteSlot removes an open slot. Held slots cannot be deleted.
// DELETE /api/admin/slots/{id}
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id := booking.SlotID(chi.URLParam(r, "id"))

	if err := h.Lifecycle.Registry().Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN: AGENCY MANAGEMENT
// =============================================================================

// CreateAgency creates a new agency.
// POST /api/admin/agencies
func (h *Handler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var req CreateAgencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	agency := booking.Agency{
		ID:          booking.AgencyID(booking.NewID()),
		Name:        req.Name,
		City:        req.City,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveAgency(r.Context(), agency); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create agency", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgencyDTO(agency))
}

// UpdateAgency updates an existing agency.
// PUT /api/admin/agencies/{id}
func (h *Handler) UpdateAgency(w http.ResponseWriter, r *http.Request) {
	id := booking.AgencyID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetAgency(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get agency")
		return
	}

	var req CreateAgencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	existing.City = req.City
	existing.Description = req.Description

	if err := h.Store.SaveAgency(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update agency", err)
		return
	}
	writeJSON(w, http.StatusOK, toAgencyDTO(*existing))
}

// DeleteAgency removes an agency and its slots. Fails while any slot is held.
// DELETE /api/admin/agencies/{id}
func (h *Handler) DeleteAgency(w http.ResponseWriter, r *http.Request) {
	id := booking.AgencyID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteAgency(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete agency")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN: CONTENT PAGES
// =============================================================================

// SavePage creates or updates a content page by slug.
// POST /api/admin/pages
func (h *Handler) SavePage(w http.ResponseWriter, r *http.Request) {
	var req SavePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Slug == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "slug and title are required", nil)
		return
	}

	page := sqlite.Page{Slug: req.Slug, Title: req.Title, Content: req.Content}
	if existing, err := h.Store.GetPageBySlug(r.Context(), req.Slug); err == nil {
		page.ID = existing.ID
	} else {
		page.ID = booking.NewID()
	}

	if err := h.Store.SavePage(r.Context(), page); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save page", err)
		return
	}
	writeJSON(w, http.StatusOK, PageDTO{ID: page.ID, Slug: page.Slug, Title: page.Title, Content: page.Content})
}

// DeletePage removes a content page.
// DELETE /api/admin/pages/{id}
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeletePage(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN: EXPORT AND DASHBOARD
// =============================================================================

// ExportCSV streams all appointments as CSV, creation order.
// GET /api/admin/export?status=...&agency_id=...
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter := booking.AppointmentFilter{
		Status:   booking.AppointmentStatus(r.URL.Query().Get("status")),
		AgencyID: booking.AgencyID(r.URL.Query().Get("agency_id")),
	}

	appts, err := h.Store.ListAppointments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list appointments", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"id", "slot_id", "status", "created_at",
		"name", "surname", "email", "phone", "city", "postal_code",
		"project_stage", "sector", "description", "needs",
	})
	for _, a := range appts {
		cw.Write([]string{
			string(a.ID), string(a.SlotID), string(a.Status),
			a.CreatedAt.Format(time.RFC3339),
			a.Owner.Name, a.Owner.Surname, a.Owner.Email, a.Owner.Phone,
			a.Owner.City, a.Owner.PostalCode,
			a.Owner.ProjectStage, a.Owner.Sector,
			a.Owner.Description, a.Owner.Needs,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("csv export failed mid-stream", "error", err)
	}
}

// Dashboard returns status counts and per-agency slot utilization.
// GET /api/admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := booking.ComputeStats(r.Context(), h.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	dto := DashboardDTO{
		PendingReview: stats.PendingReview,
		Confirmed:     stats.Confirmed,
		Cancelled:     stats.Cancelled,
		Rejected:      stats.Rejected,
		Utilization:   make([]UtilizationDTO, len(stats.Utilization)),
	}
	for i, u := range stats.Utilization {
		dto.Utilization[i] = UtilizationDTO{
			AgencyID:       string(u.AgencyID),
			AgencyName:     u.AgencyName,
			TotalSlots:     u.TotalSlots,
			HeldSlots:      u.HeldSlots,
			UtilizationPct: u.UtilizationPct.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, booking.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
	case booking.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case booking.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, booking.ErrInvalidSlotRange):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
