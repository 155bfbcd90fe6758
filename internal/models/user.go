package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Client is a rider account.
type Client struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string    `json:"name" gorm:"not null"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address,omitempty"`
	IsDriver   bool      `json:"is_driver" gorm:"not null;default:false"`
	TotalRides int       `json:"total_rides" gorm:"not null;default:0"`
	Rating     float64   `json:"rating" gorm:"not null;default:5"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (Client) TableName() string {
	return "users"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type AdminRole string

const (
	RoleAdmin  AdminRole = "admin"
	RoleViewer AdminRole = "viewer"
)

// Admin is a dashboard operator. Only admins with RoleAdmin may act on
// driver verifications.
type Admin struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string    `json:"full_name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"-"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         AdminRole `json:"role" gorm:"not null;default:'admin'"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Admin) TableName() string {
	return "admins"
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = RoleAdmin
	}
	return a.HashPassword()
}

func (a *Admin) HashPassword() error {
	if a.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hashedPassword)
	a.Password = ""
	return nil
}

func (a *Admin) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
}

// Initial returns the avatar letter shown next to the admin name.
func (a Admin) Initial() string {
	name := a.FullName
	if name == "" {
		name = "Admin"
	}
	return strings.ToUpper(string([]rune(name)[:1]))
}
