package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type PaymentStore interface {
	PaymentByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	PaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error)
	CreatePayment(ctx context.Context, payment *model.Payment) error
	// CompletePayment marks the payment COMPLETED with the settlement hash
	// and returns the updated row.
	CompletePayment(ctx context.Context, id uuid.UUID, txHash string) (*model.Payment, error)
}

func (s *GormStore) PaymentByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) PaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := s.db.WithContext(ctx).Where("booking_request_id = ?", bookingID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *GormStore) CompletePayment(ctx context.Context, id uuid.UUID, txHash string) (*model.Payment, error) {
	err := s.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.PaymentStatusCompleted,
			"tx_hash":      txHash,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return s.PaymentByID(ctx, id)
}
