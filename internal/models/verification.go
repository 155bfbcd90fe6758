package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationInReview VerificationStatus = "in_review"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationApproved || s == VerificationRejected
}

// Valid reports whether s is a known status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationInReview, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// CanTransition reports whether an admin action may move s to next.
// Only pending bundles can be decided.
func (s VerificationStatus) CanTransition(next VerificationStatus) bool {
	if s != VerificationPending {
		return false
	}
	return next == VerificationApproved || next == VerificationRejected
}

// DriverVerification is a document bundle submitted by a driver.
type DriverVerification struct {
	ID                 string             `json:"id" gorm:"type:uuid;primaryKey"`
	DriverID           string             `json:"driver_id" gorm:"type:uuid;not null;index"`
	IdentityPhotoURL   string             `json:"identity_photo_url,omitempty"`
	DriverPhotoURL     string             `json:"driver_photo_url,omitempty"`
	MotorcyclePhotoURL string             `json:"motorcycle_photo_url,omitempty"`
	MotorcycleModel    string             `json:"motorcycle_model,omitempty"`
	MotorcycleColor    string             `json:"motorcycle_color,omitempty"`
	MotorcyclePlate    string             `json:"motorcycle_plate,omitempty"`
	Status             VerificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	SubmittedAt        time.Time          `json:"submitted_at" gorm:"index"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	AdminNotes         string             `json:"admin_notes,omitempty"`
	Driver             *Driver            `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (DriverVerification) TableName() string {
	return "driver_verifications"
}

func (v *DriverVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = VerificationPending
	}
	if v.SubmittedAt.IsZero() {
		v.SubmittedAt = time.Now()
	}
	return nil
}

func (v DriverVerification) clone() DriverVerification {
	out := v
	if v.VerifiedAt != nil {
		t := *v.VerifiedAt
		out.VerifiedAt = &t
	}
	if v.Driver != nil {
		d := *v.Driver
		out.Driver = &d
	}
	return out
}
