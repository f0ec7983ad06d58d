package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/clubperks/internal/middleware"
	"github.com/mmeshcher/clubperks/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса клубных привилегий.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// promhttp сжимает ответ сам
	r.Handle("/metrics", promhttp.Handler())

	r.With(custommiddleware.GzipMiddleware).Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/offers/{offerID}/stock", h.GetOfferStock)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RoleMember))

			r.Post("/offers/{offerID}/codes", h.GenerateCode)
			r.Get("/user/codes", h.GetUserCodes)
			r.Get("/user/balance", h.GetBalance)
			r.Get("/user/points", h.GetPoints)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RolePartner, model.RoleAdmin))

			r.Get("/codes/{code}", h.ValidateCode)
			r.Post("/codes/{code}/redeem", h.RedeemCode)
			r.Get("/codes/{code}/redemption", h.GetRedemption)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RoleAdmin))

			r.Post("/codes/{code}/cancel", h.CancelCode)
			r.Put("/admin/offers/{offerID}", h.PutOffer)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
