package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
	"github.com/staypay-jp/core/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))

	store := repository.NewGormStore(db)
	log := zap.NewNop()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	h := NewHandler(
		service.NewIdentityService(store, tokens, log),
		service.NewLifecycle(store, log),
		service.NewPolicyService(store, log),
		log,
	)

	srv := httptest.NewServer(NewRouter(h, tokens, log))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerUser(t *testing.T, srv *httptest.Server, username string, role model.Role) (id, token string) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username":      username,
		"password":      "pw-" + username,
		"role":          role,
		"walletAddress": "0xwallet-" + username,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register %s: %v", username, body)
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	hostID, hostToken := registerUser(t, srv, "host1", model.RoleHost)
	_, guestToken := registerUser(t, srv, "guest1", model.RoleGuest)
	registerUser(t, srv, "operator", model.RoleOperator)

	// Guest requests a booking.
	resp, booking := doJSON(t, srv, http.MethodPost, "/api/booking-requests", guestToken, map[string]any{
		"hostId":       hostID,
		"propertyId":   "tokyo-apartment-12",
		"checkInDate":  "2025-12-01T15:00:00Z",
		"checkOutDate": "2025-12-05T10:00:00Z",
		"totalAmount":  "10000.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", booking)
	bookingID := booking["id"].(string)
	assert.Equal(t, "REQUESTED", booking["status"])

	// Host approves.
	resp, approved := doJSON(t, srv, http.MethodPost, "/api/booking-requests/"+bookingID+"/approve", hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", approved)
	assert.Equal(t, "APPROVED", approved["status"])

	// Guest prepares the payment and receives transfer instructions.
	resp, prepared := doJSON(t, srv, http.MethodPost, "/api/payments/prepare", guestToken, map[string]any{
		"bookingRequestId": bookingID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", prepared)
	paymentID := prepared["paymentId"].(string)
	assert.Equal(t, "10000.00", prepared["amount"])
	assert.Equal(t, "0xwallet-guest1", prepared["fromWallet"])
	assert.Equal(t, "0xwallet-host1", prepared["toWallet"])

	// Payment notifier reports the on-chain transfer.
	resp, settled := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/payment-completed", "", map[string]any{
		"txHash":    "0xA",
		"paymentId": paymentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "支払いが完了しました", settled["message"])

	// The same notification again is a no-op success.
	resp, replayed := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/payment-completed", "", map[string]any{
		"txHash":    "0xA",
		"paymentId": paymentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "既に処理済みのtxHashです（冪等性）", replayed["message"])

	// Host closes the stay; the platform fee is prepared at the default rate.
	resp, completed := doJSON(t, srv, http.MethodPost, "/api/stays/"+bookingID+"/complete", hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", completed)
	fee := completed["feePayment"].(map[string]any)
	assert.Equal(t, "1000.00", fee["amount"])
	feePaymentID := fee["feePaymentId"].(string)

	// Fee settlement via webhook.
	resp, feeSettled := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/fee-completed", "", map[string]any{
		"txHash":       "0xB",
		"feePaymentId": feePaymentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "手数料支払いが完了しました", feeSettled["message"])

	// Guest opens a host-fault refund for the full amount.
	resp, refund := doJSON(t, srv, http.MethodPost, "/api/refunds", guestToken, map[string]any{
		"bookingRequestId": bookingID,
		"faultType":        "HOST_FAULT",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", refund)
	assert.Equal(t, "10000.00", refund["amount"])

	resp, refundSettled := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/refund-completed", "", map[string]any{
		"txHash":   "0xC",
		"refundId": refund["refundId"].(string),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "返金が完了しました", refundSettled["message"])
}

func TestWebhookValidation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing txHash", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/payment-completed", "", map[string]any{
			"paymentId": "7f0d7a3e-0000-0000-0000-000000000001",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown payment", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/payment-completed", "", map[string]any{
			"txHash":    "0xDEAD",
			"paymentId": "7f0d7a3e-0000-0000-0000-000000000001",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAuthz(t *testing.T) {
	srv := newTestServer(t)

	hostID, hostToken := registerUser(t, srv, "host1", model.RoleHost)
	_, guestToken := registerUser(t, srv, "guest1", model.RoleGuest)

	t.Run("no token", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodGet, "/api/booking-requests", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodGet, "/api/booking-requests", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("guest cannot approve", func(t *testing.T) {
		resp, booking := doJSON(t, srv, http.MethodPost, "/api/booking-requests", guestToken, map[string]any{
			"hostId":       hostID,
			"propertyId":   "p-1",
			"checkInDate":  "2025-12-01T15:00:00Z",
			"checkOutDate": "2025-12-05T10:00:00Z",
			"totalAmount":  "100.00",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, _ = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/booking-requests/%s/approve", booking["id"]), guestToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("host cannot create booking", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodPost, "/api/booking-requests", hostToken, map[string]any{
			"hostId":       hostID,
			"propertyId":   "p-1",
			"checkInDate":  "2025-12-01T15:00:00Z",
			"checkOutDate": "2025-12-05T10:00:00Z",
			"totalAmount":  "100.00",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("guest cannot manage policies", func(t *testing.T) {
		resp, _ := doJSON(t, srv, http.MethodPost, "/api/policies", guestToken, map[string]any{
			"name":   "fee_policy",
			"config": map[string]any{"feeRate": "0.15"},
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestPolicyAndAuditOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	hostID, hostToken := registerUser(t, srv, "host1", model.RoleHost)
	_, guestToken := registerUser(t, srv, "guest1", model.RoleGuest)
	_, operatorToken := registerUser(t, srv, "operator", model.RoleOperator)

	resp, policy := doJSON(t, srv, http.MethodPost, "/api/policies", operatorToken, map[string]any{
		"name":   "fee_policy",
		"config": map[string]any{"feeRate": "0.15"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", policy)

	// Walk one booking through payment so the new rate is observable.
	resp, booking := doJSON(t, srv, http.MethodPost, "/api/booking-requests", guestToken, map[string]any{
		"hostId":       hostID,
		"propertyId":   "p-1",
		"checkInDate":  "2025-12-01T15:00:00Z",
		"checkOutDate": "2025-12-05T10:00:00Z",
		"totalAmount":  "10000.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bookingID := booking["id"].(string)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/booking-requests/"+bookingID+"/approve", hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, prepared := doJSON(t, srv, http.MethodPost, "/api/payments/prepare", guestToken, map[string]any{
		"bookingRequestId": bookingID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/webhooks/jpyc/payment-completed", "", map[string]any{
		"txHash":    "0xA",
		"paymentId": prepared["paymentId"],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, completed := doJSON(t, srv, http.MethodPost, "/api/stays/"+bookingID+"/complete", guestToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", completed)
	fee := completed["feePayment"].(map[string]any)
	assert.Equal(t, "1500.00", fee["amount"], "fee priced with the upserted 15% rate")

	// Operator reads the booking's audit trail.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/audit-logs/booking_request/"+bookingID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	auditResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer auditResp.Body.Close()
	require.Equal(t, http.StatusOK, auditResp.StatusCode)

	var trail []map[string]any
	require.NoError(t, json.NewDecoder(auditResp.Body).Decode(&trail))
	require.Len(t, trail, 2)
	assert.Equal(t, "CREATED", trail[0]["action"])
	assert.Equal(t, "APPROVED", trail[1]["action"])
}
