package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByWallet(ctx context.Context, walletAddress string) (*model.User, error)
	// OperatorUser returns the designated operator account: the oldest user
	// with role operator. Exactly one operator receives all platform fees.
	OperatorUser(ctx context.Context) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}

func (s *GormStore) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UserByWallet(ctx context.Context, walletAddress string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) OperatorUser(ctx context.Context) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("role = ?", model.RoleOperator).
		Order("created_at ASC").
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}
