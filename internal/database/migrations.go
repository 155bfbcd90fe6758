package database

import (
	"errors"
	"strings"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.Client{},
		&models.Driver{},
		&models.Ride{},
		&models.DriverVerification{},
		&models.Admin{},
	)
	if err != nil {
		return err
	}

	// Rows written by the mobile backend only carry user_type
	if db.Migrator().HasColumn(&models.Client{}, "user_type") {
		if err := db.Exec(`UPDATE users SET is_driver = (user_type = 'driver') WHERE is_driver IS DISTINCT FROM (user_type = 'driver')`).Error; err != nil {
			return err
		}
	}

	db.Exec(`ALTER TABLE driver_verifications DROP CONSTRAINT IF EXISTS driver_verifications_status_check`)
	db.Exec(`ALTER TABLE driver_verifications ADD CONSTRAINT driver_verifications_status_check CHECK (status IN ('pending', 'in_review', 'approved', 'rejected'))`)

	return nil
}

// SeedAdmin creates the first dashboard admin when none exists with email.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return false, nil
	}

	var existing models.Admin
	err := db.Where("LOWER(email) = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	admin := models.Admin{
		FullName: "Administrateur",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
