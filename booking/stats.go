/*
stats.go - Read-only reporting over appointments and slots

PURPOSE:
  Backs the admin dashboard: appointment counts per status and per-agency
  slot utilization. Ratios use decimal arithmetic so a dashboard never
  shows 66.66666666666667%.
*/
package booking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AgencyUtilization is the held/total slot ratio for one agency.
type AgencyUtilization struct {
	AgencyID   AgencyID
	AgencyName string
	TotalSlots int
	HeldSlots  int
	// UtilizationPct is held/total as a percentage with two decimal places,
	// zero when the agency has no slots.
	UtilizationPct decimal.Decimal
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	PendingReview int
	Confirmed     int
	Cancelled     int
	Rejected      int
	Utilization   []AgencyUtilization
}

// ComputeStats builds the dashboard from current appointments and slots.
func ComputeStats(ctx context.Context, store Store) (*DashboardStats, error) {
	appts, err := store.ListAppointments(ctx, AppointmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}

	stats := &DashboardStats{}
	for _, a := range appts {
		switch a.Status {
		case StatusPendingReview:
			stats.PendingReview++
		case StatusConfirmed:
			stats.Confirmed++
		case StatusCancelled:
			stats.Cancelled++
		case StatusRejected:
			stats.Rejected++
		}
	}

	agencies, err := store.ListAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}
	hundred := decimal.NewFromInt(100)
	for _, agency := range agencies {
		slots, err := store.ListSlots(ctx, agency.ID, false)
		if err != nil {
			return nil, fmt.Errorf("compute stats for agency %s: %w", agency.ID, err)
		}
		u := AgencyUtilization{
			AgencyID:   agency.ID,
			AgencyName: agency.Name,
			TotalSlots: len(slots),
		}
		for _, s := range slots {
			if s.Status == SlotHeld {
				u.HeldSlots++
			}
		}
		if u.TotalSlots > 0 {
			u.UtilizationPct = decimal.NewFromInt(int64(u.HeldSlots)).
				Div(decimal.NewFromInt(int64(u.TotalSlots))).
				Mul(hundred).
				Round(2)
		}
		stats.Utilization = append(stats.Utilization, u)
	}

	return stats, nil
}
