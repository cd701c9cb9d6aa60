package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type RefundStore interface {
	RefundByID(ctx context.Context, id uuid.UUID) (*model.Refund, error)
	RefundsByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Refund, error)
	CreateRefund(ctx context.Context, refund *model.Refund) error
	CompleteRefund(ctx context.Context, id uuid.UUID, txHash string) (*model.Refund, error)
}

func (s *GormStore) RefundByID(ctx context.Context, id uuid.UUID) (*model.Refund, error) {
	var r model.Refund
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) RefundsByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Refund, error) {
	var refunds []model.Refund
	err := s.db.WithContext(ctx).
		Where("booking_request_id = ?", bookingID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

func (s *GormStore) CreateRefund(ctx context.Context, refund *model.Refund) error {
	return s.db.WithContext(ctx).Create(refund).Error
}

func (s *GormStore) CompleteRefund(ctx context.Context, id uuid.UUID, txHash string) (*model.Refund, error) {
	err := s.db.WithContext(ctx).
		Model(&model.Refund{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.PaymentStatusCompleted,
			"tx_hash":      txHash,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return s.RefundByID(ctx, id)
}
