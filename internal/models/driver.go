package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DriverStatus string

// DriverStatus constants
const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusOffline   DriverStatus = "offline"
	DriverStatusOnRide    DriverStatus = "on_ride"
)

// Driver is a read-only copy of a driver profile.
type Driver struct {
	ID            string       `json:"id" gorm:"type:uuid;primaryKey"`
	FullName      string       `json:"full_name" gorm:"not null"`
	Email         string       `json:"email" gorm:"uniqueIndex;not null"`
	Phone         string       `json:"phone"`
	LicenseNumber string       `json:"license_number,omitempty"`
	VehicleType   string       `json:"vehicle_type,omitempty"`
	VehiclePlate  string       `json:"vehicle_plate,omitempty"`
	IsVerified    bool         `json:"is_verified" gorm:"not null;default:false"`
	TotalRides    int          `json:"total_rides" gorm:"not null;default:0"`
	TotalEarnings Amount       `json:"total_earnings" gorm:"type:numeric;default:0"`
	Rating        float64      `json:"rating" gorm:"not null;default:5"`
	Status        DriverStatus `json:"status" gorm:"not null;default:'offline';index"`
	CreatedAt     time.Time    `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (Driver) TableName() string {
	return "drivers"
}

func (d *Driver) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = DriverStatusOffline
	}
	return nil
}
