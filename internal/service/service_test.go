package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, model.AutoMigrate(db), "migrate")
	return repository.NewGormStore(db)
}

func newTestLifecycle(t *testing.T) (*Lifecycle, repository.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewLifecycle(store, zap.NewNop()), store
}

func createUser(t *testing.T, store repository.Store, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Username:      username,
		Password:      "$2a$10$irrelevant.for.these.tests",
		Role:          role,
		WalletAddress: "0xwallet-" + username,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// createBooking seeds a REQUESTED booking without going through the engine.
func createBooking(t *testing.T, store repository.Store, guest, host *model.User, amount string) *model.BookingRequest {
	t.Helper()
	b := &model.BookingRequest{
		GuestID:      guest.ID,
		HostID:       host.ID,
		PropertyID:   "property-001",
		CheckInDate:  time.Date(2025, 11, 1, 15, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
		TotalAmount:  decimal.RequireFromString(amount),
		Status:       model.BookingStatusRequested,
	}
	require.NoError(t, store.CreateBooking(context.Background(), b))
	return b
}

// paidBooking walks a booking through approval, payment preparation and
// settlement, returning the booking and its completed payment.
func paidBooking(t *testing.T, l *Lifecycle, store repository.Store, guest, host *model.User, amount, txHash string) (*model.BookingRequest, *model.Payment) {
	t.Helper()
	ctx := context.Background()

	booking := createBooking(t, store, guest, host, amount)
	_, err := l.ApproveBooking(ctx, booking.ID, host.ID)
	require.NoError(t, err)

	payment, err := l.PreparePayment(ctx, booking.ID, guest.ID)
	require.NoError(t, err)

	result, err := l.SettlePayment(ctx, txHash, payment.ID)
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)

	settled, err := store.PaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	return booking, settled
}

func auditCountByTxHash(t *testing.T, store repository.Store, entityType string, entityID uuid.UUID, txHash string) int {
	t.Helper()
	logs, err := store.AuditLogsByEntity(context.Background(), entityType, entityID)
	require.NoError(t, err)
	n := 0
	for _, entry := range logs {
		if entry.TxHash != nil && *entry.TxHash == txHash {
			n++
		}
	}
	return n
}
