/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients. DTOs keep the wire
  format decoupled from the domain types so either can evolve.

CONVENTIONS:
  - Timestamps are RFC3339 strings in UTC
  - IDs are opaque strings
  - The self-service token appears only in booking/reschedule responses

SEE ALSO:
  - handlers.go: Uses these DTOs
*/
package api

import (
	"time"

	"github.com/osengo/booking-engine/booking"
)

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// AGENCIES AND SLOTS
// =============================================================================

type AgencyDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toAgencyDTO(a booking.Agency) AgencyDTO {
	return AgencyDTO{
		ID:          string(a.ID),
		Name:        a.Name,
		City:        a.City,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

type CreateAgencyRequest struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	Description string `json:"description"`
}

type SlotDTO struct {
	ID       string `json:"id"`
	AgencyID string `json:"agency_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Status   string `json:"status"`
}

func toSlotDTO(s booking.Slot) SlotDTO {
	return SlotDTO{
		ID:       string(s.ID),
		AgencyID: string(s.AgencyID),
		Start:    s.Start.Format(time.RFC3339),
		End:      s.End.Format(time.RFC3339),
		Status:   string(s.Status),
	}
}

// CreateSlotsRequest subdivides [start, end) into windows of the given
// length in minutes. A remainder shorter than one window is discarded.
type CreateSlotsRequest struct {
	AgencyID      string `json:"agency_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	WindowMinutes int    `json:"window_minutes"`
}

// =============================================================================
// BOOKING AND SELF-SERVICE
// =============================================================================

type BookRequest struct {
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	ProjectStage string `json:"project_stage"`
	Sector       string `json:"sector"`
	Description  string `json:"description"`
	Needs        string `json:"needs"`
}

func (r BookRequest) owner() booking.Owner {
	return booking.Owner{
		Name:         r.Name,
		Surname:      r.Surname,
		Email:        r.Email,
		Phone:        r.Phone,
		City:         r.City,
		PostalCode:   r.PostalCode,
		ProjectStage: r.ProjectStage,
		Sector:       r.Sector,
		Description:  r.Description,
		Needs:        r.Needs,
	}
}

type AppointmentDTO struct {
	ID        string     `json:"id"`
	SlotID    string     `json:"slot_id"`
	Status    string     `json:"status"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedAt string     `json:"created_at"`
	Slot      *SlotDTO   `json:"slot,omitempty"`
	Agency    *AgencyDTO `json:"agency,omitempty"`
}

func toAppointmentDTO(a booking.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:        string(a.ID),
		SlotID:    string(a.SlotID),
		Status:    string(a.Status),
		Name:      a.Owner.Name,
		Surname:   a.Owner.Surname,
		Email:     a.Owner.Email,
		Phone:     a.Owner.Phone,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// BookResponse carries the one secret the client will ever see.
type BookResponse struct {
	Appointment AppointmentDTO `json:"appointment"`
	Token       string         `json:"token"`
}

type CancelRequest struct {
	Token string `json:"token"`
}

type RescheduleRequest struct {
	Token     string `json:"token"`
	NewSlotID string `json:"new_slot_id"`
}

// =============================================================================
// ADMIN
// =============================================================================

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type UtilizationDTO struct {
	AgencyID       string `json:"agency_id"`
	AgencyName     string `json:"agency_name"`
	TotalSlots     int    `json:"total_slots"`
	HeldSlots      int    `json:"held_slots"`
	UtilizationPct string `json:"utilization_pct"`
}

type DashboardDTO struct {
	PendingReview int              `json:"pending_review"`
	Confirmed     int              `json:"confirmed"`
	Cancelled     int              `json:"cancelled"`
	Rejected      int              `json:"rejected"`
	Utilization   []UtilizationDTO `json:"utilization"`
}

// =============================================================================
// CONTENT PAGES
// =============================================================================

type PageDTO struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SavePageRequest struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
