package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderImage represents one photograph attached to a service order.
// A record is created when an upload is initiated and only becomes visible
// in reads once the transfer has been confirmed (Uploaded = true).
type OrderImage struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OrderID    uint           `gorm:"not null;index" json:"order_id"` // foreign key to orders table
	Order      Order          `gorm:"foreignKey:OrderID" json:"-"`    // don't include full order in JSON
	StorageKey string         `gorm:"not null" json:"-"`              // object-store key, never exposed directly
	MimeType   string         `gorm:"not null" json:"mime_type"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	SizeBytes  int64          `json:"size_bytes"`
	Uploaded   bool           `gorm:"not null;default:false" json:"uploaded"`
	URL        string         `gorm:"-" json:"url,omitempty"` // computed field, presigned URL
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the OrderImage model
func (OrderImage) TableName() string {
	return "order_images"
}
