package services

import (
	"time"

	"github.com/phonginreallife/rentdesk/db"
)

// OccupancyStatus is the derived occupancy of a unit
type OccupancyStatus string

const (
	OccupancyOccupied OccupancyStatus = "OCCUPIED"
	OccupancyUpcoming OccupancyStatus = "UPCOMING"
	OccupancyVacant   OccupancyStatus = "VACANT"
)

const leaseEndedTooltip = "The most recent lease has ended"

// OccupancyInfo is the occupancy of one unit together with the lease it was
// derived from.
type OccupancyInfo struct {
	Status      OccupancyStatus `json:"status"`
	Label       string          `json:"label"`
	Color       string          `json:"color"`
	Lease       *db.Lease       `json:"lease,omitempty"`
	TooltipText string          `json:"tooltipText,omitempty"`
}

// LatestLease returns the lease with the greatest start date. Ties keep the
// first lease in input order; leases with unparseable start dates sort last.
func LatestLease(leases []db.Lease) *db.Lease {
	var (
		latest      *db.Lease
		latestStart time.Time
		latestOK    bool
	)
	for i := range leases {
		start, err := db.ParseDate(leases[i].StartDate)
		ok := err == nil
		switch {
		case latest == nil:
		case ok && (!latestOK || start.After(latestStart)):
		default:
			continue
		}
		latest, latestStart, latestOK = &leases[i], start, ok
	}
	return latest
}

// ResolveOccupancy derives occupancy from the most recent lease of a unit.
// ACTIVE and PENDING leases are taken at face value even when their dates
// have drifted out of range; reconciling them is the backend's job.
func ResolveOccupancy(lease *db.Lease, _ time.Time) OccupancyInfo {
	if lease == nil {
		return vacant(nil, "")
	}
	switch lease.Status {
	case db.LeaseActive:
		return OccupancyInfo{Status: OccupancyOccupied, Label: "Occupied", Color: ColorGreen, Lease: lease}
	case db.LeasePending:
		return OccupancyInfo{Status: OccupancyUpcoming, Label: "Upcoming", Color: ColorBlue, Lease: lease}
	default:
		return vacant(lease, leaseEndedTooltip)
	}
}

func vacant(lease *db.Lease, tooltip string) OccupancyInfo {
	return OccupancyInfo{
		Status:      OccupancyVacant,
		Label:       "Vacant",
		Color:       ColorDefault,
		Lease:       lease,
		TooltipText: tooltip,
	}
}

// ResolveUnitOccupancy groups leases by unit and resolves every unit in one
// pass. Units without leases are vacant.
func ResolveUnitOccupancy(units []db.Unit, leases []db.Lease, now time.Time) map[string]OccupancyInfo {
	byUnit := make(map[string][]db.Lease, len(units))
	for _, l := range leases {
		byUnit[l.UnitID] = append(byUnit[l.UnitID], l)
	}

	result := make(map[string]OccupancyInfo, len(units))
	for _, u := range units {
		result[u.ID] = ResolveOccupancy(LatestLease(byUnit[u.ID]), now)
	}
	return result
}
