package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FaultType attributes responsibility for an early stay termination and
// selects the refund rate.
type FaultType string

const (
	FaultTypeGuest FaultType = "GUEST_FAULT"
	FaultTypeHost  FaultType = "HOST_FAULT"
)

func (f FaultType) Valid() bool {
	return f == FaultTypeGuest || f == FaultTypeHost
}

// refunds — zero or more per booking request, keyed by fault type.
type Refund struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	BookingRequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"bookingRequestId"`

	FaultType FaultType `gorm:"type:varchar(32);not null" json:"faultType"`

	FromWallet string          `gorm:"type:varchar(128);not null" json:"fromWallet"`
	ToWallet   string          `gorm:"type:varchar(128);not null" json:"toWallet"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	RefundRate decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"refundRate"`

	TxHash *string       `gorm:"type:varchar(128);index" json:"txHash"`
	Status PaymentStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`

	BookingRequest *BookingRequest `gorm:"foreignKey:BookingRequestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
