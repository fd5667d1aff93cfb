package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/logging"
	"digital-checkout/internal/usecase"
)

type Options struct {
	ExpiringWindowDays int
	RequestTimeout     time.Duration
	// Limiter is optional; nil disables checkout throttling.
	Limiter   Limiter
	RateLimit int
	RateWin   time.Duration
}

// Server exposes checkout, ledger, order and cart use cases over HTTP.
type Server struct {
	checkout usecase.CheckoutUseCase
	credits  usecase.CreditUseCase
	orders   usecase.OrderUseCase
	carts    usecase.CartUseCase
	products repository.ProductRepository
	auth     *Authenticator
	opts     Options
	log      *zerolog.Logger
}

func NewServer(
	checkout usecase.CheckoutUseCase,
	credits usecase.CreditUseCase,
	orders usecase.OrderUseCase,
	carts usecase.CartUseCase,
	products repository.ProductRepository,
	auth *Authenticator,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.ExpiringWindowDays <= 0 {
		opts.ExpiringWindowDays = 30
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 45 * time.Second
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		checkout: checkout,
		credits:  credits,
		orders:   orders,
		carts:    carts,
		products: products,
		auth:     auth,
		opts:     opts,
		log:      &l,
	}
}

// Router builds the chi router with all routes and middlewares.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout), s.auth.Middleware)
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/checkout", func(r chi.Router) {
			if s.opts.Limiter != nil {
				r.Use(RateLimit(s.opts.Limiter, "checkout", s.opts.RateLimit, s.opts.RateWin, s.log))
			}
			r.Post("/cash", s.handleCheckoutCash)
			r.Post("/credits", s.handleCheckoutCredits)
			r.Post("/mixed", s.handleCheckoutMixed)
		})

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", s.handleBalance)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/purchase", s.handlePurchase)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Get("/{id}", s.handleGetOrder)
			r.Post("/{id}/refund", s.handleRefundOrder)
		})
		r.Get("/access", s.handleAccess)
		r.Get("/downloads/{productId}", s.handleDownload)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Delete("/", s.handleClearCart)
			r.Post("/items", s.handleAddCartItem)
			r.Patch("/items/{productId}", s.handleUpdateCartItem)
			r.Delete("/items/{productId}", s.handleRemoveCartItem)
		})
	})
	return r
}

// fail logs server-side failures and writes the mapped error response.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	l := logging.With(ctx, s.log)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeError(w, status, msg)
}
