package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"masterhub/internal/mw"
	"masterhub/internal/service"
)

type Services struct {
	Auth       *service.AuthService
	Orders     *service.OrderService
	Bids       *service.BidService
	Assignment *service.AssignmentService
	Payouts    *service.PayoutService
	Balance    *service.BalanceService
}

func NewRouter(svc Services, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", RegisterHandler(svc.Auth, jwtSecret))
	r.Post("/api/user/login", LoginHandler(svc.Auth, jwtSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(jwtSecret))

		r.Get("/api/user/balance", GetBalanceHandler(svc.Balance))

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", CreateOrderHandler(svc.Orders))
			r.Get("/", ListOrdersHandler(svc.Orders))
			r.Get("/open", ListOpenOrdersHandler(svc.Orders))

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", GetOrderHandler(svc.Orders))
				r.Post("/cancel", CancelOrderHandler(svc.Orders))
				r.Post("/complete", CompleteOrderHandler(svc.Assignment))
				r.Get("/bids", ListBidsHandler(svc.Bids))
				r.Post("/bids", SubmitBidHandler(svc.Bids))
				r.Post("/bids/{bidID}/select", SelectBidHandler(svc.Assignment))
			})
		})

		r.Route("/api/bids/{bidID}", func(r chi.Router) {
			r.Put("/", EditBidHandler(svc.Bids))
			r.Delete("/", CancelBidHandler(svc.Bids))
			r.Post("/reject", RejectBidHandler(svc.Assignment))
		})

		r.Get("/api/payouts/{payoutID}", GetPayoutHandler(svc.Payouts))

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(mw.RequireAdmin)

			r.Get("/payouts", ListPayoutsHandler(svc.Payouts))
			r.Post("/payouts/{payoutID}/approve", ApprovePayoutHandler(svc.Payouts))
			r.Post("/payouts/{payoutID}/reject", RejectPayoutHandler(svc.Payouts))
			r.Post("/orders/{orderID}/payout", CreatePayoutHandler(svc.Payouts))
			r.Post("/partners", CreatePartnerHandler(svc.Auth))
		})
	})

	return r
}
