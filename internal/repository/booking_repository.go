package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type BookingStore interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*model.BookingRequest, error)
	BookingsByGuest(ctx context.Context, guestID uuid.UUID) ([]model.BookingRequest, error)
	BookingsByHost(ctx context.Context, hostID uuid.UUID) ([]model.BookingRequest, error)
	CreateBooking(ctx context.Context, booking *model.BookingRequest) error
	// UpdateBookingStatus mutates the status and returns the updated row.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingRequest, error)
}

func (s *GormStore) BookingByID(ctx context.Context, id uuid.UUID) (*model.BookingRequest, error) {
	var b model.BookingRequest
	err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) BookingsByGuest(ctx context.Context, guestID uuid.UUID) ([]model.BookingRequest, error) {
	var bookings []model.BookingRequest
	err := s.db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (s *GormStore) BookingsByHost(ctx context.Context, hostID uuid.UUID) ([]model.BookingRequest, error) {
	var bookings []model.BookingRequest
	err := s.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (s *GormStore) CreateBooking(ctx context.Context, booking *model.BookingRequest) error {
	return s.db.WithContext(ctx).Create(booking).Error
}

func (s *GormStore) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingRequest, error) {
	err := s.db.WithContext(ctx).
		Model(&model.BookingRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return nil, err
	}
	return s.BookingByID(ctx, id)
}
