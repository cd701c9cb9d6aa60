package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

func TestSettlePayment(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)

	booking := createBooking(t, store, guest, host, "10000.00")
	_, err := l.ApproveBooking(ctx, booking.ID, host.ID)
	require.NoError(t, err)
	payment, err := l.PreparePayment(ctx, booking.ID, guest.ID)
	require.NoError(t, err)

	result, err := l.SettlePayment(ctx, "0xA", payment.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, model.EntityPayment, result.EntityType)
	assert.Equal(t, payment.ID, result.EntityID)

	settled, err := store.PaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, settled.Status)
	require.NotNil(t, settled.TxHash)
	assert.Equal(t, "0xA", *settled.TxHash)
	assert.NotNil(t, settled.CompletedAt)

	stay, err := store.StayByBooking(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stay, "settling the payment opens the stay")
	assert.Equal(t, model.StayStateInStay, stay.Status)

	assert.Equal(t, 1, auditCountByTxHash(t, store, model.EntityPayment, payment.ID, "0xA"))
}

func TestSettlePayment_Replay(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)

	booking := createBooking(t, store, guest, host, "10000.00")
	_, err := l.ApproveBooking(ctx, booking.ID, host.ID)
	require.NoError(t, err)
	payment, err := l.PreparePayment(ctx, booking.ID, guest.ID)
	require.NoError(t, err)

	first, err := l.SettlePayment(ctx, "0xA", payment.ID)
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)

	// Same notification delivered again: success, but nothing changes.
	replay, err := l.SettlePayment(ctx, "0xA", payment.ID)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyProcessed)
	assert.Equal(t, payment.ID, replay.EntityID)

	assert.Equal(t, 1, auditCountByTxHash(t, store, model.EntityPayment, payment.ID, "0xA"),
		"replay must not append a second audit row")

	stayLogs, err := store.AuditLogsByEntity(ctx, model.EntityStayStatus, mustStayID(t, store, booking.ID))
	require.NoError(t, err)
	assert.Len(t, stayLogs, 1, "replay must not re-run the follow-up")
}

func TestSettlePayment_CompletedUnderDifferentHash(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)

	_, payment := paidBooking(t, l, store, guest, host, "10000.00", "0xA")

	result, err := l.SettlePayment(ctx, "0xB", payment.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)

	fresh, err := store.PaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.TxHash)
	assert.Equal(t, "0xA", *fresh.TxHash, "original hash must survive")
	assert.Equal(t, 0, auditCountByTxHash(t, store, model.EntityPayment, payment.ID, "0xB"))
}

func TestSettlePayment_Errors(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)
	booking := createBooking(t, store, guest, host, "10000.00")
	_, err := l.ApproveBooking(ctx, booking.ID, host.ID)
	require.NoError(t, err)
	payment, err := l.PreparePayment(ctx, booking.ID, guest.ID)
	require.NoError(t, err)

	t.Run("empty txHash", func(t *testing.T) {
		_, err := l.SettlePayment(ctx, "", payment.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := l.SettlePayment(ctx, "0xDEAD", uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSettleFee(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)
	createUser(t, store, "operator", model.RoleOperator)

	booking, _ := paidBooking(t, l, store, guest, host, "10000.00", "0xA")
	out, err := l.CompleteStay(ctx, booking.ID, host.ID)
	require.NoError(t, err)

	result, err := l.SettleFee(ctx, "0xB", out.FeePayment.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)

	fee, err := store.FeePaymentByID(ctx, out.FeePayment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, fee.Status)
	require.NotNil(t, fee.TxHash)
	assert.Equal(t, "0xB", *fee.TxHash)

	t.Run("replay", func(t *testing.T) {
		replay, err := l.SettleFee(ctx, "0xB", out.FeePayment.ID)
		require.NoError(t, err)
		assert.True(t, replay.AlreadyProcessed)
		assert.Equal(t, 1, auditCountByTxHash(t, store, model.EntityFeePayment, fee.ID, "0xB"))
	})
}

func TestSettleRefund(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)

	booking, _ := paidBooking(t, l, store, guest, host, "5000.00", "0xA")
	refund, err := l.CreateRefund(ctx, booking.ID, model.FaultTypeGuest, guest.ID)
	require.NoError(t, err)

	result, err := l.SettleRefund(ctx, "0xC", refund.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)

	settled, err := store.RefundByID(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, settled.Status)
	assert.Equal(t, "2500.00", settled.Amount.StringFixed(2))

	t.Run("replay", func(t *testing.T) {
		replay, err := l.SettleRefund(ctx, "0xC", refund.ID)
		require.NoError(t, err)
		assert.True(t, replay.AlreadyProcessed)
	})
}

// A txHash already consumed by one entity type gates settlements of another.
func TestSettle_TxHashSharedAcrossEntities(t *testing.T) {
	l, store := newTestLifecycle(t)
	ctx := context.Background()

	guest := createUser(t, store, "guest1", model.RoleGuest)
	host := createUser(t, store, "host1", model.RoleHost)

	booking, _ := paidBooking(t, l, store, guest, host, "5000.00", "0xA")
	refund, err := l.CreateRefund(ctx, booking.ID, model.FaultTypeHost, guest.ID)
	require.NoError(t, err)

	result, err := l.SettleRefund(ctx, "0xA", refund.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed, "hash already spent on the payment settlement")

	fresh, err := store.RefundByID(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, fresh.Status)
}

func mustStayID(t *testing.T, store repository.Store, bookingID uuid.UUID) uuid.UUID {
	t.Helper()
	stay, err := store.StayByBooking(context.Background(), bookingID)
	require.NoError(t, err)
	require.NotNil(t, stay)
	return stay.ID
}
