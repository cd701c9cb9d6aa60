package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type AuditLogStore interface {
	// AppendAuditLog writes one immutable audit row. There is no update or
	// delete for audit logs.
	AppendAuditLog(ctx context.Context, entry *model.AuditLog) error
	AuditLogsByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.AuditLog, error)
	// AuditLogByTxHash is the idempotency-gate lookup: at most one audit row
	// ever carries a given settlement hash.
	AuditLogByTxHash(ctx context.Context, txHash string) (*model.AuditLog, error)
}

func (s *GormStore) AppendAuditLog(ctx context.Context, entry *model.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) AuditLogsByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (s *GormStore) AuditLogByTxHash(ctx context.Context, txHash string) (*model.AuditLog, error) {
	var entry model.AuditLog
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
