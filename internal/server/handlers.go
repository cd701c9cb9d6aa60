package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/service"
)

type Handler struct {
	identity  *service.IdentityService
	lifecycle *service.Lifecycle
	policies  *service.PolicyService
	log       *zap.Logger
}

func NewHandler(identity *service.IdentityService, lifecycle *service.Lifecycle, policies *service.PolicyService, log *zap.Logger) *Handler {
	return &Handler{identity: identity, lifecycle: lifecycle, policies: policies, log: log}
}

type errorBody struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the service error taxonomy to HTTP statuses with
// user-facing Japanese messages.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondJSON(w, http.StatusUnauthorized, errorBody{Message: "ユーザー名またはパスワードが間違っています"})
	case errors.Is(err, service.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorBody{Message: "この操作を行う権限がありません"})
	case errors.Is(err, service.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Message: "対象が見つかりません"})
	case errors.Is(err, service.ErrInvalidState):
		respondJSON(w, http.StatusConflict, errorBody{Message: "現在の状態ではこの操作はできません"})
	case errors.Is(err, service.ErrConflict):
		respondJSON(w, http.StatusConflict, errorBody{Message: "既に存在するため作成できません"})
	default:
		h.log.Error("request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorBody{Message: "処理に失敗しました"})
	}
}

func decodeJSON(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

type userBody struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Role          model.Role `json:"role"`
	WalletAddress string     `json:"walletAddress"`
}

type authResponse struct {
	User  userBody `json:"user"`
	Token string   `json:"token"`
}

func toUserBody(u *model.User) userBody {
	return userBody{ID: u.ID, Username: u.Username, Role: u.Role, WalletAddress: u.WalletAddress}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username      string     `json:"username"`
		Password      string     `json:"password"`
		Role          model.Role `json:"role"`
		WalletAddress string     `json:"walletAddress"`
	}
	if !decodeJSON(r, &req) {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	user, token, err := h.identity.Register(r.Context(), service.RegisterInput{
		Username:      req.Username,
		Password:      req.Password,
		Role:          req.Role,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{User: toUserBody(user), Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(r, &req) {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	user, token, err := h.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{User: toUserBody(user), Token: token})
}

func (h *Handler) CreateBookingRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID       uuid.UUID       `json:"hostId"`
		PropertyID   string          `json:"propertyId"`
		CheckInDate  time.Time       `json:"checkInDate"`
		CheckOutDate time.Time       `json:"checkOutDate"`
		TotalAmount  decimal.Decimal `json:"totalAmount"`
	}
	if !decodeJSON(r, &req) {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	actor := IdentityFrom(r.Context())
	booking, err := h.lifecycle.CreateBookingRequest(r.Context(), actor.UserID, service.CreateBookingInput{
		HostID:       req.HostID,
		PropertyID:   req.PropertyID,
		CheckInDate:  req.CheckInDate,
		CheckOutDate: req.CheckOutDate,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

func (h *Handler) ListBookingRequests(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFrom(r.Context())
	bookings, err := h.lifecycle.BookingsForUser(r.Context(), actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.decideBooking(w, r, h.lifecycle.ApproveBooking)
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.decideBooking(w, r, h.lifecycle.RejectBooking)
}

func (h *Handler) decideBooking(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, bookingID, hostID uuid.UUID) (*model.BookingRequest, error)) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	actor := IdentityFrom(r.Context())
	booking, err := decide(r.Context(), bookingID, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *Handler) PreparePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingRequestID uuid.UUID `json:"bookingRequestId"`
	}
	if !decodeJSON(r, &req) || req.BookingRequestID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "bookingRequestId が必要です"})
		return
	}

	actor := IdentityFrom(r.Context())
	payment, err := h.lifecycle.PreparePayment(r.Context(), req.BookingRequestID, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"paymentId":  payment.ID,
		"fromWallet": payment.FromWallet,
		"toWallet":   payment.ToWallet,
		"amount":     payment.Amount.StringFixed(2),
		"message":    "JPYCで送金してください。完了後、txHashをWebhookに送信してください。",
	})
}

func (h *Handler) CompleteStay(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingRequestId"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	actor := IdentityFrom(r.Context())
	result, err := h.lifecycle.CompleteStay(r.Context(), bookingID, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"stayStatus": result.Stay,
		"feePayment": map[string]any{
			"feePaymentId": result.FeePayment.ID,
			"fromWallet":   result.FeePayment.FromWallet,
			"toWallet":     result.FeePayment.ToWallet,
			"amount":       result.FeePayment.Amount.StringFixed(2),
			"message":      "ホストは手数料をJPYCで運営に送金してください",
		},
	})
}

func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingRequestID uuid.UUID       `json:"bookingRequestId"`
		FaultType        model.FaultType `json:"faultType"`
	}
	if !decodeJSON(r, &req) || req.BookingRequestID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "bookingRequestId と faultType が必要です"})
		return
	}

	actor := IdentityFrom(r.Context())
	refund, err := h.lifecycle.CreateRefund(r.Context(), req.BookingRequestID, req.FaultType, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"refundId":   refund.ID,
		"faultType":  refund.FaultType,
		"fromWallet": refund.FromWallet,
		"toWallet":   refund.ToWallet,
		"amount":     refund.Amount.StringFixed(2),
		"refundRate": refund.RefundRate,
		"message":    "ホストはJPYCでゲストに返金してください",
	})
}

// Webhook endpoints for the JPYC payment notifier. Replays are answered
// with 200 so the notifier stops retrying.

func (h *Handler) PaymentCompletedWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxHash    string    `json:"txHash"`
		PaymentID uuid.UUID `json:"paymentId"`
	}
	if !decodeJSON(r, &req) || req.TxHash == "" || req.PaymentID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "txHash と paymentId が必要です"})
		return
	}
	h.respondSettlement(w, r, "支払いが完了しました", func() (*service.SettlementResult, error) {
		return h.lifecycle.SettlePayment(r.Context(), req.TxHash, req.PaymentID)
	})
}

func (h *Handler) FeeCompletedWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxHash       string    `json:"txHash"`
		FeePaymentID uuid.UUID `json:"feePaymentId"`
	}
	if !decodeJSON(r, &req) || req.TxHash == "" || req.FeePaymentID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "txHash と feePaymentId が必要です"})
		return
	}
	h.respondSettlement(w, r, "手数料支払いが完了しました", func() (*service.SettlementResult, error) {
		return h.lifecycle.SettleFee(r.Context(), req.TxHash, req.FeePaymentID)
	})
}

func (h *Handler) RefundCompletedWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxHash   string    `json:"txHash"`
		RefundID uuid.UUID `json:"refundId"`
	}
	if !decodeJSON(r, &req) || req.TxHash == "" || req.RefundID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "txHash と refundId が必要です"})
		return
	}
	h.respondSettlement(w, r, "返金が完了しました", func() (*service.SettlementResult, error) {
		return h.lifecycle.SettleRefund(r.Context(), req.TxHash, req.RefundID)
	})
}

func (h *Handler) respondSettlement(w http.ResponseWriter, r *http.Request, completedMsg string, settle func() (*service.SettlementResult, error)) {
	result, err := settle()
	if err != nil {
		h.respondError(w, err)
		return
	}
	if result.AlreadyProcessed {
		respondJSON(w, http.StatusOK, errorBody{Message: "既に処理済みのtxHashです（冪等性）"})
		return
	}
	respondJSON(w, http.StatusOK, errorBody{Message: completedMsg})
}

func (h *Handler) UpsertPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string          `json:"name"`
		Config json.RawMessage `json:"config"`
	}
	if !decodeJSON(r, &req) || req.Name == "" || len(req.Config) == 0 {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	actor := IdentityFrom(r.Context())
	policy, err := h.policies.Upsert(r.Context(), actor.UserID, req.Name, req.Config)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policy)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityId"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: "入力データが不正です"})
		return
	}

	logs, err := h.lifecycle.AuditTrail(r.Context(), chi.URLParam(r, "entityType"), entityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
