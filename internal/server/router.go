package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/model"
)

// NewRouter wires all routes. Webhook routes are deliberately outside the
// authenticated group: the payment notifier only carries a txHash.
func NewRouter(h *Handler, tokens *auth.TokenManager, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Payment notifier webhooks, unauthenticated and idempotent.
		r.Route("/webhooks/jpyc", func(r chi.Router) {
			r.Post("/payment-completed", h.PaymentCompletedWebhook)
			r.Post("/fee-completed", h.FeeCompletedWebhook)
			r.Post("/refund-completed", h.RefundCompletedWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens))

			r.With(RequireRole(model.RoleGuest)).Post("/booking-requests", h.CreateBookingRequest)
			r.With(RequireRole(model.RoleGuest, model.RoleHost)).Get("/booking-requests", h.ListBookingRequests)
			r.With(RequireRole(model.RoleHost)).Post("/booking-requests/{id}/approve", h.ApproveBooking)
			r.With(RequireRole(model.RoleHost)).Post("/booking-requests/{id}/reject", h.RejectBooking)

			r.With(RequireRole(model.RoleGuest)).Post("/payments/prepare", h.PreparePayment)
			r.With(RequireRole(model.RoleGuest, model.RoleHost)).Post("/stays/{bookingRequestId}/complete", h.CompleteStay)
			r.With(RequireRole(model.RoleGuest, model.RoleHost)).Post("/refunds", h.CreateRefund)

			r.With(RequireRole(model.RoleOperator)).Post("/policies", h.UpsertPolicy)
			r.With(RequireRole(model.RoleOperator)).Get("/audit-logs/{entityType}/{entityId}", h.ListAuditLogs)
		})
	})

	return r
}
