package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/ordersync/internal/middleware"
	"github.com/mmeshcher/ordersync/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Подпись считается по сырому телу, поэтому вебхуки идут мимо gzip.
		r.Route("/webhook", func(r chi.Router) {
			r.Use(custommiddleware.WebhookSignature(h.opts.WebhookSecret, h.logger))

			r.Post("/orders", h.Webhook)
			r.Post("/customers", h.Webhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.GzipMiddleware)

			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Post("/auth/logout", h.Logout)
				r.Get("/auth/me", h.Me)

				r.Get("/orders", h.ListOrders)
				r.Post("/orders", h.CreateOrder)
				r.Post("/orders/sync", h.SyncOrders)
				r.Get("/orders/{id}", h.GetOrder)
				r.Put("/orders/{id}", h.UpdateOrder)
				r.Post("/orders/{id}/push", h.PushOrder)

				r.Post("/wms/orders/sync", h.SyncWMSOrder)
				r.Get("/wms/orders/{id}/status", h.GetWMSStatus)
				r.Put("/wms/orders/{id}/customer", h.UpdateWMSCustomer)

				r.Get("/notifications", h.ListNotifications)
				r.Put("/notifications/{id}/read", h.MarkNotificationRead)

				r.Group(func(r chi.Router) {
					r.Use(custommiddleware.RequireRole(model.RoleAdmin))

					r.Post("/orders/sync/shopify", h.SyncFromShopify)
					r.Delete("/orders/{id}", h.DeleteOrder)
					r.Post("/wms/connect", h.ConnectWMS)
					r.Post("/wms/inventory", h.UpdateInventory)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
