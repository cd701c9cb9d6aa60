package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type StayStore interface {
	StayByBooking(ctx context.Context, bookingID uuid.UUID) (*model.StayStatus, error)
	CreateStay(ctx context.Context, stay *model.StayStatus) error
	CompleteStay(ctx context.Context, id uuid.UUID) (*model.StayStatus, error)
}

func (s *GormStore) StayByBooking(ctx context.Context, bookingID uuid.UUID) (*model.StayStatus, error) {
	var st model.StayStatus
	err := s.db.WithContext(ctx).Where("booking_request_id = ?", bookingID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *GormStore) CreateStay(ctx context.Context, stay *model.StayStatus) error {
	return s.db.WithContext(ctx).Create(stay).Error
}

func (s *GormStore) CompleteStay(ctx context.Context, id uuid.UUID) (*model.StayStatus, error) {
	err := s.db.WithContext(ctx).
		Model(&model.StayStatus{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.StayStateCompleted,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	var st model.StayStatus
	if err := s.db.WithContext(ctx).First(&st, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
