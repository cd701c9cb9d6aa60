package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
)

type PolicyStore interface {
	PolicyByName(ctx context.Context, name string) (*model.Policy, error)
	CreatePolicy(ctx context.Context, policy *model.Policy) error
	// UpdatePolicyConfig replaces the config blob of an existing policy and
	// returns the updated row.
	UpdatePolicyConfig(ctx context.Context, name string, config datatypes.JSON) (*model.Policy, error)
}

func (s *GormStore) PolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	var p model.Policy
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) CreatePolicy(ctx context.Context, policy *model.Policy) error {
	return s.db.WithContext(ctx).Create(policy).Error
}

func (s *GormStore) UpdatePolicyConfig(ctx context.Context, name string, config datatypes.JSON) (*model.Policy, error) {
	err := s.db.WithContext(ctx).
		Model(&model.Policy{}).
		Where("name = ?", name).
		Update("config", config).Error
	if err != nil {
		return nil, err
	}
	return s.PolicyByName(ctx, name)
}
