package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "REQUESTED"
	BookingStatusApproved  BookingStatus = "APPROVED"
	BookingStatusRejected  BookingStatus = "REJECTED"
)

// booking_requests
type BookingRequest struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	GuestID    uuid.UUID `gorm:"type:uuid;not null;index" json:"guestId"`
	HostID     uuid.UUID `gorm:"type:uuid;not null;index" json:"hostId"`
	PropertyID string    `gorm:"type:varchar(255);not null" json:"propertyId"`

	CheckInDate  time.Time `gorm:"not null" json:"checkInDate"`
	CheckOutDate time.Time `gorm:"not null" json:"checkOutDate"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalAmount"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	Guest *User `gorm:"foreignKey:GuestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Host  *User `gorm:"foreignKey:HostID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (b *BookingRequest) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
