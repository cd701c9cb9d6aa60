package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shared by payments, fee_payments and refunds.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// payments — at most one per booking request. Uniqueness is enforced by a
// check-then-create in the service layer, not by a DB constraint.
type Payment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	BookingRequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"bookingRequestId"`

	FromWallet string          `gorm:"type:varchar(128);not null" json:"fromWallet"`
	ToWallet   string          `gorm:"type:varchar(128);not null" json:"toWallet"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`

	// Settlement transaction hash reported by the payment rail.
	TxHash *string       `gorm:"type:varchar(128);index" json:"txHash"`
	Status PaymentStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`

	BookingRequest *BookingRequest `gorm:"foreignKey:BookingRequestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
