/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, webhook *WebhookHandler, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Gateway callbacks carry an HMAC signature instead of a bearer token.
	r.Post("/webhooks/paygate", webhook.ServeHTTP)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Route("/funds", func(r chi.Router) {
			r.Post("/", h.CreateFundHandler)
			r.Get("/", h.ListFundsHandler)

			r.Route("/{fundID}", func(r chi.Router) {
				r.Get("/", h.GetFundHandler)
				r.Patch("/", h.UpdateFundHandler)
				r.Delete("/", h.DeleteFundHandler)

				r.Get("/stats", h.GetFundStatsHandler)
				r.Get("/top-donors", h.ListTopDonorsHandler)
				r.Get("/pending", h.ListPendingItemsHandler)

				r.Post("/donations", h.CreateDonationHandler)
				r.Get("/donations", h.ListDonationsHandler)

				r.Post("/expenses", h.CreateExpenseHandler)
				r.Get("/expenses", h.ListExpensesHandler)
			})
		})

		r.Route("/donations/{donationID}", func(r chi.Router) {
			r.Get("/", h.GetDonationHandler)
			r.Patch("/", h.UpdateDonationHandler)
			r.Delete("/", h.DeleteDonationHandler)
			r.Post("/confirm", h.ConfirmDonationHandler)
			r.Post("/reject", h.RejectDonationHandler)
		})

		r.Route("/expenses/{expenseID}", func(r chi.Router) {
			r.Get("/", h.GetExpenseHandler)
			r.Patch("/", h.UpdateExpenseHandler)
			r.Delete("/", h.DeleteExpenseHandler)
			r.Post("/approve", h.ApproveExpenseHandler)
			r.Post("/reject", h.RejectExpenseHandler)
		})
	})

	return r
}
