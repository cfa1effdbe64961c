package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pos-backend/internal/auth"
	"pos-backend/internal/middleware"
	ordercontroller "pos-backend/internal/order/controller"
	productcontroller "pos-backend/internal/product/controller"
	"pos-backend/internal/receipt"
	"pos-backend/internal/report"
	"pos-backend/internal/user"
)

type Controllers struct {
	Auth    *auth.Controller
	Users   *user.Controller
	Orders  *ordercontroller.OrderController
	Product *productcontroller.ProductController
	Reports *report.Controller
	Receipt *receipt.Controller
}

func NewRouter(ctrls Controllers, tokens *auth.TokenManager, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))

	requireAuth := middleware.RequireAuth(tokens, logger)
	loginLimiter := middleware.NewLoginLimiter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", ctrls.Auth.Login)
			r.Post("/refresh", ctrls.Auth.Refresh)
			r.Post("/logout", ctrls.Auth.Logout)
		})

		r.Route("/orders", func(r chi.Router) {
			// Customer-facing receipt data, no auth.
			r.Get("/{id}/public", ctrls.Orders.Public)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.AdminOrCashier)
				r.Get("/", ctrls.Orders.List)
				r.Post("/", ctrls.Orders.Create)
				r.Get("/{id}", ctrls.Orders.Get)
				r.Put("/{id}", ctrls.Orders.Update)
				r.Post("/{id}/pay", ctrls.Orders.Pay)
				r.Post("/{id}/cancel", ctrls.Orders.Cancel)
				r.Patch("/{id}/status", ctrls.Orders.PatchStatus)
			})

			r.With(requireAuth, middleware.AdminOnly).Delete("/{id}", ctrls.Orders.Delete)
		})

		r.With(requireAuth, middleware.AdminOrCashier).Get("/products", ctrls.Product.ListActive)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, middleware.AdminOnly)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", ctrls.Product.ListAll)
				r.Post("/", ctrls.Product.Create)
				r.Put("/{id}", ctrls.Product.Update)
				r.Delete("/{id}", ctrls.Product.Delete)
				r.Get("/categories-with-color", ctrls.Product.ListCategories)
				r.Post("/categories", ctrls.Product.CreateCategory)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", ctrls.Users.List)
				r.Post("/", ctrls.Users.Create)
				r.Put("/{id}", ctrls.Users.Update)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/orders", ctrls.Reports.Orders)
				r.Get("/top-products", ctrls.Reports.TopProducts)
			})
		})

		r.Get("/print/receipt/{orderId}", ctrls.Receipt.Receipt)
	})

	return r
}
