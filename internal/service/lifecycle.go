package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

// Lifecycle drives a booking from request through approval, payment, stay
// completion, fee remittance and refunds. Every operation validates role,
// existence and status preconditions, then mutates and audits inside one
// storage transaction.
type Lifecycle struct {
	store repository.Store
	log   *zap.Logger
}

func NewLifecycle(store repository.Store, log *zap.Logger) *Lifecycle {
	return &Lifecycle{store: store, log: log}
}

type CreateBookingInput struct {
	HostID       uuid.UUID
	PropertyID   string
	CheckInDate  time.Time
	CheckOutDate time.Time
	TotalAmount  decimal.Decimal
}

// CreateBookingRequest opens a REQUESTED booking from guest to host.
func (l *Lifecycle) CreateBookingRequest(ctx context.Context, guestID uuid.UUID, in CreateBookingInput) (*model.BookingRequest, error) {
	if in.PropertyID == "" {
		return nil, fmt.Errorf("%w: propertyId is required", ErrValidation)
	}
	if !in.CheckOutDate.After(in.CheckInDate) {
		return nil, fmt.Errorf("%w: checkOutDate must be after checkInDate", ErrValidation)
	}
	if !in.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: totalAmount must be positive", ErrValidation)
	}

	var booking *model.BookingRequest
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		host, err := tx.UserByID(ctx, in.HostID)
		if err != nil {
			return err
		}
		if host == nil || host.Role != model.RoleHost {
			return fmt.Errorf("%w: host", ErrNotFound)
		}

		booking = &model.BookingRequest{
			GuestID:      guestID,
			HostID:       in.HostID,
			PropertyID:   in.PropertyID,
			CheckInDate:  in.CheckInDate,
			CheckOutDate: in.CheckOutDate,
			TotalAmount:  in.TotalAmount.Round(2),
			Status:       model.BookingStatusRequested,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return err
		}

		return appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityBookingRequest,
			EntityID:   booking.ID,
			Action:     model.AuditActionCreated,
			ActorID:    &guestID,
			New:        booking,
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("booking requested",
		zap.String("booking", booking.ID.String()),
		zap.String("guest", guestID.String()),
		zap.String("host", in.HostID.String()))
	return booking, nil
}

// ApproveBooking — host accepts a REQUESTED booking.
func (l *Lifecycle) ApproveBooking(ctx context.Context, bookingID, hostID uuid.UUID) (*model.BookingRequest, error) {
	return l.decideBooking(ctx, bookingID, hostID, model.BookingStatusApproved, model.AuditActionApproved)
}

// RejectBooking — host declines a REQUESTED booking. REJECTED is terminal.
func (l *Lifecycle) RejectBooking(ctx context.Context, bookingID, hostID uuid.UUID) (*model.BookingRequest, error) {
	return l.decideBooking(ctx, bookingID, hostID, model.BookingStatusRejected, model.AuditActionRejected)
}

func (l *Lifecycle) decideBooking(ctx context.Context, bookingID, hostID uuid.UUID, target model.BookingStatus, action model.AuditAction) (*model.BookingRequest, error) {
	var updated *model.BookingRequest
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking request", ErrNotFound)
		}
		if booking.HostID != hostID {
			return fmt.Errorf("%w: booking belongs to another host", ErrForbidden)
		}
		if booking.Status != model.BookingStatusRequested {
			return fmt.Errorf("%w: booking is %s, expected REQUESTED", ErrInvalidState, booking.Status)
		}

		updated, err = tx.UpdateBookingStatus(ctx, bookingID, target)
		if err != nil {
			return err
		}

		return appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityBookingRequest,
			EntityID:   bookingID,
			Action:     action,
			ActorID:    &hostID,
			Previous:   booking,
			New:        updated,
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("booking decided",
		zap.String("booking", bookingID.String()),
		zap.String("status", string(target)))
	return updated, nil
}

// PreparePayment creates the PENDING guest→host payment for an APPROVED
// booking. At most one payment per booking: the existence check and the
// create run in one transaction, but two calls racing in separate
// transactions can both pass the check under read-committed isolation.
func (l *Lifecycle) PreparePayment(ctx context.Context, bookingID, guestID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking request", ErrNotFound)
		}
		if booking.GuestID != guestID {
			return fmt.Errorf("%w: booking belongs to another guest", ErrForbidden)
		}
		if booking.Status != model.BookingStatusApproved {
			return fmt.Errorf("%w: booking is %s, expected APPROVED", ErrInvalidState, booking.Status)
		}

		existing, err := tx.PaymentByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: payment already exists for this booking", ErrConflict)
		}

		guest, err := tx.UserByID(ctx, booking.GuestID)
		if err != nil {
			return err
		}
		host, err := tx.UserByID(ctx, booking.HostID)
		if err != nil {
			return err
		}
		if guest == nil || host == nil {
			return fmt.Errorf("%w: booking parties", ErrNotFound)
		}

		payment = &model.Payment{
			BookingRequestID: booking.ID,
			FromWallet:       guest.WalletAddress,
			ToWallet:         host.WalletAddress,
			Amount:           booking.TotalAmount,
			Status:           model.PaymentStatusPending,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		return appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityPayment,
			EntityID:   payment.ID,
			Action:     model.AuditActionPrepared,
			ActorID:    &guestID,
			New:        payment,
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("payment prepared",
		zap.String("payment", payment.ID.String()),
		zap.String("booking", bookingID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return payment, nil
}

// StayCompletion is the result of CompleteStay: the closed stay and the fee
// payment it produced.
type StayCompletion struct {
	Stay       *model.StayStatus
	FeePayment *model.FeePayment
}

// CompleteStay closes the stay and prepares the host→operator platform fee,
// priced with the fee rate in force right now (snapshotted on the fee).
func (l *Lifecycle) CompleteStay(ctx context.Context, bookingID, actorID uuid.UUID) (*StayCompletion, error) {
	var out StayCompletion
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking request", ErrNotFound)
		}
		if booking.GuestID != actorID && booking.HostID != actorID {
			return fmt.Errorf("%w: only the booking's guest or host may complete the stay", ErrForbidden)
		}

		stay, err := tx.StayByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if stay == nil {
			return fmt.Errorf("%w: stay status", ErrNotFound)
		}
		if stay.Status == model.StayStateCompleted {
			return fmt.Errorf("%w: stay is already completed", ErrInvalidState)
		}

		updatedStay, err := tx.CompleteStay(ctx, stay.ID)
		if err != nil {
			return err
		}

		payment, err := tx.PaymentByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("%w: payment", ErrNotFound)
		}

		host, err := tx.UserByID(ctx, booking.HostID)
		if err != nil {
			return err
		}
		operator, err := tx.OperatorUser(ctx)
		if err != nil {
			return err
		}
		if host == nil || operator == nil {
			return fmt.Errorf("%w: operator account", ErrNotFound)
		}

		feeCfg := resolveFeePolicy(ctx, tx)
		fee := &model.FeePayment{
			BookingRequestID: booking.ID,
			FromWallet:       host.WalletAddress,
			ToWallet:         operator.WalletAddress,
			Amount:           payment.Amount.Mul(feeCfg.FeeRate).Round(2),
			FeeRate:          feeCfg.FeeRate,
			Status:           model.PaymentStatusPending,
		}
		if err := tx.CreateFeePayment(ctx, fee); err != nil {
			return err
		}

		if err := appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityStayStatus,
			EntityID:   stay.ID,
			Action:     model.AuditActionCompleted,
			ActorID:    &actorID,
			Previous:   stay,
			New:        updatedStay,
		}); err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityFeePayment,
			EntityID:   fee.ID,
			Action:     model.AuditActionPrepared,
			ActorID:    &actorID,
			New:        fee,
		}); err != nil {
			return err
		}

		out = StayCompletion{Stay: updatedStay, FeePayment: fee}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("stay completed",
		zap.String("booking", bookingID.String()),
		zap.String("fee", out.FeePayment.Amount.StringFixed(2)),
		zap.String("feeRate", out.FeePayment.FeeRate.String()))
	return &out, nil
}

// CreateRefund prepares a host→guest refund priced by the refund policy rate
// for the fault type. Requires the booking's payment to be COMPLETED.
func (l *Lifecycle) CreateRefund(ctx context.Context, bookingID uuid.UUID, fault model.FaultType, actorID uuid.UUID) (*model.Refund, error) {
	if !fault.Valid() {
		return nil, fmt.Errorf("%w: faultType must be GUEST_FAULT or HOST_FAULT", ErrValidation)
	}

	var refund *model.Refund
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("%w: booking request", ErrNotFound)
		}
		if booking.GuestID != actorID && booking.HostID != actorID {
			return fmt.Errorf("%w: only the booking's guest or host may request a refund", ErrForbidden)
		}

		payment, err := tx.PaymentByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != model.PaymentStatusCompleted {
			return fmt.Errorf("%w: a completed payment is required", ErrInvalidState)
		}

		guest, err := tx.UserByID(ctx, booking.GuestID)
		if err != nil {
			return err
		}
		host, err := tx.UserByID(ctx, booking.HostID)
		if err != nil {
			return err
		}
		if guest == nil || host == nil {
			return fmt.Errorf("%w: booking parties", ErrNotFound)
		}

		rate := resolveRefundPolicy(ctx, tx).Rate(fault)
		refund = &model.Refund{
			BookingRequestID: booking.ID,
			FaultType:        fault,
			FromWallet:       host.WalletAddress,
			ToWallet:         guest.WalletAddress,
			Amount:           payment.Amount.Mul(rate).Round(2),
			RefundRate:       rate,
			Status:           model.PaymentStatusPending,
		}
		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}

		return appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityRefund,
			EntityID:   refund.ID,
			Action:     model.AuditActionPrepared,
			ActorID:    &actorID,
			New:        refund,
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("refund prepared",
		zap.String("refund", refund.ID.String()),
		zap.String("booking", bookingID.String()),
		zap.String("faultType", string(fault)),
		zap.String("amount", refund.Amount.StringFixed(2)))
	return refund, nil
}

// BookingsForUser lists the bookings visible to the user: own requests for a
// guest, own properties' requests for a host.
func (l *Lifecycle) BookingsForUser(ctx context.Context, userID uuid.UUID) ([]model.BookingRequest, error) {
	user, err := l.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	switch user.Role {
	case model.RoleGuest:
		return l.store.BookingsByGuest(ctx, userID)
	case model.RoleHost:
		return l.store.BookingsByHost(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: role %s has no booking list", ErrForbidden, user.Role)
	}
}

// AuditTrail returns the ordered audit records of one entity.
func (l *Lifecycle) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.AuditLog, error) {
	return l.store.AuditLogsByEntity(ctx, entityType, entityID)
}
