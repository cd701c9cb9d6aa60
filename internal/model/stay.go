package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StayState string

const (
	StayStateInStay    StayState = "IN_STAY"
	StayStateCompleted StayState = "COMPLETED"
)

// stay_statuses — created only once the booking's payment settles.
type StayStatus struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	BookingRequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"bookingRequestId"`

	Status StayState `gorm:"type:varchar(32);not null;index" json:"status"`

	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`

	BookingRequest *BookingRequest `gorm:"foreignKey:BookingRequestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (s *StayStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
