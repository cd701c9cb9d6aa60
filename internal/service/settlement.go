package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

// SettlementResult reports the outcome of a webhook settlement.
// AlreadyProcessed means the notification was a replay (or the entity was
// already COMPLETED); the caller should treat it as success and must not
// expect any new mutation or audit record.
type SettlementResult struct {
	AlreadyProcessed bool
	EntityType       string
	EntityID         uuid.UUID
}

// settlement parameterizes the shared fetch-check-complete flow for
// payments, fees and refunds, so the idempotency and audit contract is
// applied uniformly.
type settlement[T any] struct {
	entityType string
	load       func(ctx context.Context, s repository.Store) (*T, error)
	id         func(*T) uuid.UUID
	pending    func(*T) bool
	complete   func(ctx context.Context, s repository.Store, txHash string) (*T, error)
	// followUp runs dependent side effects (and their audit rows) in the
	// same transaction as the settlement itself.
	followUp func(ctx context.Context, s repository.Store, settled *T) error
}

// settle is the webhook idempotency gate plus the settlement it guards.
// The txHash lookup runs inside the transaction, so a duplicate delivery
// racing the first cannot apply the transition twice.
func settle[T any](ctx context.Context, l *Lifecycle, txHash string, sp settlement[T]) (*SettlementResult, error) {
	if txHash == "" {
		return nil, fmt.Errorf("%w: txHash is required", ErrValidation)
	}

	var res SettlementResult
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		prior, err := tx.AuditLogByTxHash(ctx, txHash)
		if err != nil {
			return err
		}
		if prior != nil {
			res = SettlementResult{AlreadyProcessed: true, EntityType: prior.EntityType, EntityID: prior.EntityID}
			return nil
		}

		current, err := sp.load(ctx, tx)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, sp.entityType)
		}
		if !sp.pending(current) {
			// Completed earlier under a different hash; still a no-op success.
			res = SettlementResult{AlreadyProcessed: true, EntityType: sp.entityType, EntityID: sp.id(current)}
			return nil
		}

		settled, err := sp.complete(ctx, tx, txHash)
		if err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, auditEntry{
			EntityType: sp.entityType,
			EntityID:   sp.id(settled),
			Action:     model.AuditActionCompleted,
			Previous:   current,
			New:        settled,
			TxHash:     txHash,
		}); err != nil {
			return err
		}

		if sp.followUp != nil {
			if err := sp.followUp(ctx, tx, settled); err != nil {
				return err
			}
		}

		res = SettlementResult{EntityType: sp.entityType, EntityID: sp.id(settled)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.AlreadyProcessed {
		l.log.Warn("settlement replayed",
			zap.String("entityType", res.EntityType),
			zap.String("txHash", txHash))
	} else {
		l.log.Info("settlement applied",
			zap.String("entityType", res.EntityType),
			zap.String("entity", res.EntityID.String()),
			zap.String("txHash", txHash))
	}
	return &res, nil
}

// SettlePayment marks the payment COMPLETED and opens the stay (IN_STAY) for
// its booking, both in one transaction with their own audit rows.
func (l *Lifecycle) SettlePayment(ctx context.Context, txHash string, paymentID uuid.UUID) (*SettlementResult, error) {
	return settle(ctx, l, txHash, settlement[model.Payment]{
		entityType: model.EntityPayment,
		load: func(ctx context.Context, s repository.Store) (*model.Payment, error) {
			return s.PaymentByID(ctx, paymentID)
		},
		id:      func(p *model.Payment) uuid.UUID { return p.ID },
		pending: func(p *model.Payment) bool { return p.Status != model.PaymentStatusCompleted },
		complete: func(ctx context.Context, s repository.Store, txHash string) (*model.Payment, error) {
			return s.CompletePayment(ctx, paymentID, txHash)
		},
		followUp: func(ctx context.Context, s repository.Store, settled *model.Payment) error {
			stay := &model.StayStatus{
				BookingRequestID: settled.BookingRequestID,
				Status:           model.StayStateInStay,
			}
			if err := s.CreateStay(ctx, stay); err != nil {
				return err
			}
			return appendAudit(ctx, s, auditEntry{
				EntityType: model.EntityStayStatus,
				EntityID:   stay.ID,
				Action:     model.AuditActionCreated,
				New:        stay,
			})
		},
	})
}

// SettleFee marks the fee payment COMPLETED.
func (l *Lifecycle) SettleFee(ctx context.Context, txHash string, feePaymentID uuid.UUID) (*SettlementResult, error) {
	return settle(ctx, l, txHash, settlement[model.FeePayment]{
		entityType: model.EntityFeePayment,
		load: func(ctx context.Context, s repository.Store) (*model.FeePayment, error) {
			return s.FeePaymentByID(ctx, feePaymentID)
		},
		id:      func(f *model.FeePayment) uuid.UUID { return f.ID },
		pending: func(f *model.FeePayment) bool { return f.Status != model.PaymentStatusCompleted },
		complete: func(ctx context.Context, s repository.Store, txHash string) (*model.FeePayment, error) {
			return s.CompleteFeePayment(ctx, feePaymentID, txHash)
		},
	})
}

// SettleRefund marks the refund COMPLETED.
func (l *Lifecycle) SettleRefund(ctx context.Context, txHash string, refundID uuid.UUID) (*SettlementResult, error) {
	return settle(ctx, l, txHash, settlement[model.Refund]{
		entityType: model.EntityRefund,
		load: func(ctx context.Context, s repository.Store) (*model.Refund, error) {
			return s.RefundByID(ctx, refundID)
		},
		id:      func(r *model.Refund) uuid.UUID { return r.ID },
		pending: func(r *model.Refund) bool { return r.Status != model.PaymentStatusCompleted },
		complete: func(ctx context.Context, s repository.Store, txHash string) (*model.Refund, error) {
			return s.CompleteRefund(ctx, refundID, txHash)
		},
	})
}
