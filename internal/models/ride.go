package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RideStatus string

// RideStatus constants
const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// ActiveRideStatuses are the statuses counted as "active" on the dashboard.
var ActiveRideStatuses = []RideStatus{RideStatusPending, RideStatusAccepted, RideStatusInProgress}

// Ride is a read-only copy of a ride row. Distance is in metres and
// Duration in seconds, as stored by the mobile apps.
type Ride struct {
	ID             string     `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID       string     `json:"client_id" gorm:"type:uuid;index"`
	DriverID       *string    `json:"driver_id,omitempty" gorm:"type:uuid;index"`
	PickupAddress  string     `json:"pickup_address"`
	DropoffAddress string     `json:"dropoff_address"`
	Distance       float64    `json:"distance"`
	Duration       int        `json:"duration"`
	TotalPrice     Amount     `json:"total_price" gorm:"type:numeric"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	Status         RideStatus `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Client         *Client    `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Driver         *Driver    `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}

func (r *Ride) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsCompleted reports whether the ride counts towards revenue.
func (r Ride) IsCompleted() bool {
	return r.Status == RideStatusCompleted
}

// ClientName returns the joined client name or "".
func (r Ride) ClientName() string {
	if r.Client == nil {
		return ""
	}
	return r.Client.Name
}

// DriverName returns the joined driver name or "".
func (r Ride) DriverName() string {
	if r.Driver == nil {
		return ""
	}
	return r.Driver.FullName
}

func (r Ride) clone() Ride {
	out := r
	if r.DriverID != nil {
		id := *r.DriverID
		out.DriverID = &id
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	if r.Client != nil {
		c := *r.Client
		out.Client = &c
	}
	if r.Driver != nil {
		d := *r.Driver
		out.Driver = &d
	}
	return out
}
