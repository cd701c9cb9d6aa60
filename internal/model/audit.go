package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity types recorded in the audit trail.
const (
	EntityUser           = "user"
	EntityBookingRequest = "booking_request"
	EntityPayment        = "payment"
	EntityFeePayment     = "fee_payment"
	EntityRefund         = "refund"
	EntityStayStatus     = "stay_status"
	EntityPolicy         = "policy"
)

type AuditAction string

const (
	AuditActionCreated   AuditAction = "CREATED"
	AuditActionApproved  AuditAction = "APPROVED"
	AuditActionRejected  AuditAction = "REJECTED"
	AuditActionPrepared  AuditAction = "PREPARED"
	AuditActionCompleted AuditAction = "COMPLETED"
	AuditActionUpdated   AuditAction = "UPDATED"
)

// audit_logs — append-only. One row per mutation, with before/after
// snapshots. Rows carrying a tx_hash double as the webhook idempotency
// record: a settlement whose tx_hash already appears here is a replay.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	EntityType string      `gorm:"type:varchar(64);not null;index:idx_audit_entity" json:"entityType"`
	EntityID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_entity" json:"entityId"`
	Action     AuditAction `gorm:"type:varchar(32);not null" json:"action"`

	// Nil for system-initiated mutations (webhook settlements).
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"userId"`

	PreviousState datatypes.JSON `json:"previousState"`
	NewState      datatypes.JSON `gorm:"not null" json:"newState"`

	TxHash   *string        `gorm:"type:varchar(128);index" json:"txHash"`
	Metadata datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
