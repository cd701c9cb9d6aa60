package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

// FeePolicyConfig is the parsed shape of the fee_policy config blob.
type FeePolicyConfig struct {
	FeeRate decimal.Decimal `json:"feeRate"`
}

// RefundPolicyConfig maps fault types to refund rates.
type RefundPolicyConfig struct {
	GuestFault decimal.Decimal `json:"GUEST_FAULT"`
	HostFault  decimal.Decimal `json:"HOST_FAULT"`
}

func (c RefundPolicyConfig) Rate(fault model.FaultType) decimal.Decimal {
	if fault == model.FaultTypeHost {
		return c.HostFault
	}
	return c.GuestFault
}

func defaultFeePolicy() FeePolicyConfig {
	return FeePolicyConfig{FeeRate: decimal.RequireFromString("0.10")}
}

func defaultRefundPolicy() RefundPolicyConfig {
	return RefundPolicyConfig{
		GuestFault: decimal.RequireFromString("0.5"),
		HostFault:  decimal.RequireFromString("1.0"),
	}
}

// resolveFeePolicy never fails: a missing or unreadable policy record falls
// back to the hard-coded default rate.
func resolveFeePolicy(ctx context.Context, s repository.Store) FeePolicyConfig {
	p, err := s.PolicyByName(ctx, model.PolicyNameFee)
	if err != nil || p == nil {
		return defaultFeePolicy()
	}
	var cfg FeePolicyConfig
	if err := json.Unmarshal(p.Config, &cfg); err != nil || !cfg.FeeRate.IsPositive() {
		return defaultFeePolicy()
	}
	return cfg
}

func resolveRefundPolicy(ctx context.Context, s repository.Store) RefundPolicyConfig {
	def := defaultRefundPolicy()
	p, err := s.PolicyByName(ctx, model.PolicyNameRefund)
	if err != nil || p == nil {
		return def
	}
	var cfg RefundPolicyConfig
	if err := json.Unmarshal(p.Config, &cfg); err != nil {
		return def
	}
	// Unset rates fall back per field, matching the resolver's contract of
	// never producing a zero rate by accident.
	if !cfg.GuestFault.IsPositive() {
		cfg.GuestFault = def.GuestFault
	}
	if !cfg.HostFault.IsPositive() {
		cfg.HostFault = def.HostFault
	}
	return cfg
}

// PolicyService owns operator-facing policy management.
type PolicyService struct {
	store repository.Store
	log   *zap.Logger
}

func NewPolicyService(store repository.Store, log *zap.Logger) *PolicyService {
	return &PolicyService{store: store, log: log}
}

// Upsert creates the named policy or replaces its config. Operator only.
// The config must parse as the variant the name implies.
func (p *PolicyService) Upsert(ctx context.Context, actorID uuid.UUID, name string, config json.RawMessage) (*model.Policy, error) {
	actor, err := p.store.UserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.Role != model.RoleOperator {
		return nil, fmt.Errorf("%w: only the operator may manage policies", ErrForbidden)
	}

	if err := validatePolicyConfig(name, config); err != nil {
		return nil, err
	}

	var out *model.Policy
	err = p.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.PolicyByName(ctx, name)
		if err != nil {
			return err
		}

		if existing != nil {
			updated, err := tx.UpdatePolicyConfig(ctx, name, datatypes.JSON(config))
			if err != nil {
				return err
			}
			if err := appendAudit(ctx, tx, auditEntry{
				EntityType: model.EntityPolicy,
				EntityID:   updated.ID,
				Action:     model.AuditActionUpdated,
				ActorID:    &actorID,
				Previous:   existing,
				New:        updated,
			}); err != nil {
				return err
			}
			out = updated
			return nil
		}

		created := &model.Policy{Name: name, Config: datatypes.JSON(config)}
		if err := tx.CreatePolicy(ctx, created); err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityPolicy,
			EntityID:   created.ID,
			Action:     model.AuditActionCreated,
			ActorID:    &actorID,
			New:        created,
		}); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("policy upserted", zap.String("name", name), zap.String("actor", actorID.String()))
	return out, nil
}

func validatePolicyConfig(name string, config json.RawMessage) error {
	switch name {
	case model.PolicyNameFee:
		var cfg FeePolicyConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return fmt.Errorf("%w: fee_policy config: %v", ErrValidation, err)
		}
		if !cfg.FeeRate.IsPositive() || cfg.FeeRate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: feeRate must be in (0, 1]", ErrValidation)
		}
	case model.PolicyNameRefund:
		var cfg RefundPolicyConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return fmt.Errorf("%w: refund_policy config: %v", ErrValidation, err)
		}
		one := decimal.NewFromInt(1)
		for _, rate := range []decimal.Decimal{cfg.GuestFault, cfg.HostFault} {
			if rate.IsNegative() || rate.GreaterThan(one) {
				return fmt.Errorf("%w: refund rates must be in [0, 1]", ErrValidation)
			}
		}
	default:
		if !json.Valid(config) {
			return fmt.Errorf("%w: config must be valid JSON", ErrValidation)
		}
	}
	return nil
}
