package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of a service order
type OrderStatus string

const (
	StatusPendingConfirmation    OrderStatus = "PENDING_CONFIRMATION"
	StatusConfirmed              OrderStatus = "CONFIRMED"
	StatusWaitingForBike         OrderStatus = "WAITING_FOR_BIKE"
	StatusInProgress             OrderStatus = "IN_PROGRESS"
	StatusWaitingForParts        OrderStatus = "WAITING_FOR_PARTS"
	StatusAwaitingClientDecision OrderStatus = "AWAITING_CLIENT_DECISION"
	StatusReadyForPickup         OrderStatus = "READY_FOR_PICKUP"
	StatusCompleted              OrderStatus = "COMPLETED"
)

// Bicycle identifies the bike a service order is for
type Bicycle struct {
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	FrameNumber string `json:"frame_number"`
}

// Client holds the contact details of the person who booked the service
type Client struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order represents one service request for one bicycle.
// Cancellation is modeled as a soft delete, not a status value.
type Order struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Status       OrderStatus    `gorm:"type:varchar(32);not null;default:'PENDING_CONFIRMATION';index" json:"status"`
	PlannedDate  time.Time      `gorm:"not null;index" json:"planned_date"`
	ServiceNotes string         `gorm:"type:text" json:"service_notes"`
	Bicycle      Bicycle        `gorm:"embedded;embeddedPrefix:bicycle_" json:"bicycle"`
	Client       Client         `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	TechnicianID *uint          `gorm:"index" json:"technician_id"` // nullable, assigned by staff
	Technician   *Technician    `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Images       []OrderImage   `gorm:"foreignKey:OrderID" json:"images,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// IsActiveWork reports whether the workshop currently holds the bike.
// Image uploads are only permitted in these statuses.
func (s OrderStatus) IsActiveWork() bool {
	switch s {
	case StatusInProgress, StatusWaitingForParts, StatusAwaitingClientDecision:
		return true
	}
	return false
}

// IsValid reports whether s is one of the known statuses
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPendingConfirmation, StatusConfirmed, StatusWaitingForBike,
		StatusInProgress, StatusWaitingForParts, StatusAwaitingClientDecision,
		StatusReadyForPickup, StatusCompleted:
		return true
	}
	return false
}
