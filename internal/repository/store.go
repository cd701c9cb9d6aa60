package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the ledger storage the lifecycle engine runs against. Lookups
// return (nil, nil) when the row does not exist; deciding whether that is an
// error belongs to the caller.
type Store interface {
	UserStore
	BookingStore
	PaymentStore
	FeePaymentStore
	RefundStore
	StayStore
	PolicyStore
	AuditLogStore

	// Transaction runs fn as one all-or-nothing unit of work. The Store
	// handed to fn writes through the same DB transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}

// GORM implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
