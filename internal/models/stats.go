package models

import "time"

// DayBucket is one point of the daily rides chart.
type DayBucket struct {
	Label     string  `json:"label"`
	RideCount int     `json:"ride_count"`
	Revenue   float64 `json:"revenue"`
}

// WeekBucket is one point of the weekly revenue chart.
type WeekBucket struct {
	Label     string  `json:"label"`
	Week      int     `json:"week"`
	RideCount int     `json:"ride_count"`
	Revenue   float64 `json:"revenue"`
}

// DashboardStats backs the stat cards of the dashboard page.
type DashboardStats struct {
	Clients              int64     `json:"clients"`
	Drivers              int64     `json:"drivers"`
	Rides                int64     `json:"rides"`
	Revenue              float64   `json:"revenue"`
	ActiveRides          int64     `json:"active_rides"`
	OnlineDrivers        int64     `json:"online_drivers"`
	RidesToday           int64     `json:"rides_today"`
	PendingVerifications int64     `json:"pending_verifications"`
	ComputedAt           time.Time `json:"computed_at"`
}

// VerificationCounts feeds the mini counters above the documents grid.
type VerificationCounts struct {
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// CountVerifications tallies a verification list by status.
func CountVerifications(list []DriverVerification) VerificationCounts {
	var c VerificationCounts
	for _, v := range list {
		switch v.Status {
		case VerificationPending:
			c.Pending++
		case VerificationInReview:
			c.InReview++
		case VerificationApproved:
			c.Approved++
		case VerificationRejected:
			c.Rejected++
		}
		c.Total++
	}
	return c
}
