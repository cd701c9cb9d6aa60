package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Well-known policy names.
const (
	PolicyNameFee    = "fee_policy"
	PolicyNameRefund = "refund_policy"
)

// policies — named, operator-configurable rate tables. Config is a JSON blob
// whose shape depends on the policy name; parsing lives in the service layer.
type Policy struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name   string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
	Config datatypes.JSON `gorm:"not null" json:"config"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (p *Policy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
