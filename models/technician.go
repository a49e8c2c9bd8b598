package models

import (
	"time"

	"gorm.io/gorm"
)

// Technician represents a workshop staff member who can be assigned to orders
type Technician struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Technician model
func (Technician) TableName() string {
	return "technicians"
}
