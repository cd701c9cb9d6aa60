package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type FeePaymentStore interface {
	FeePaymentByID(ctx context.Context, id uuid.UUID) (*model.FeePayment, error)
	FeePaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*model.FeePayment, error)
	CreateFeePayment(ctx context.Context, fee *model.FeePayment) error
	CompleteFeePayment(ctx context.Context, id uuid.UUID, txHash string) (*model.FeePayment, error)
}

func (s *GormStore) FeePaymentByID(ctx context.Context, id uuid.UUID) (*model.FeePayment, error) {
	var f model.FeePayment
	err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) FeePaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*model.FeePayment, error) {
	var f model.FeePayment
	err := s.db.WithContext(ctx).Where("booking_request_id = ?", bookingID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) CreateFeePayment(ctx context.Context, fee *model.FeePayment) error {
	return s.db.WithContext(ctx).Create(fee).Error
}

func (s *GormStore) CompleteFeePayment(ctx context.Context, id uuid.UUID, txHash string) (*model.FeePayment, error) {
	err := s.db.WithContext(ctx).
		Model(&model.FeePayment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.PaymentStatusCompleted,
			"tx_hash":      txHash,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return s.FeePaymentByID(ctx, id)
}
