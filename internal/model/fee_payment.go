package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fee_payments — platform fee owed by the host to the operator after a stay
// completes. The fee rate is snapshotted at creation; later policy changes do
// not reprice an existing fee.
type FeePayment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	BookingRequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"bookingRequestId"`

	FromWallet string          `gorm:"type:varchar(128);not null" json:"fromWallet"`
	ToWallet   string          `gorm:"type:varchar(128);not null" json:"toWallet"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	FeeRate    decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"feeRate"`

	TxHash *string       `gorm:"type:varchar(128);index" json:"txHash"`
	Status PaymentStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`

	BookingRequest *BookingRequest `gorm:"foreignKey:BookingRequestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (f *FeePayment) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
