// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"digital-checkout/internal/config"
	"digital-checkout/internal/domain/ports/adapter"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/adapters/payment"
	"digital-checkout/internal/infra/api"
	"digital-checkout/internal/infra/db/memory"
	pg "digital-checkout/internal/infra/db/postgres"
	"digital-checkout/internal/infra/logging"
	"digital-checkout/internal/infra/metrics"
	red "digital-checkout/internal/infra/redis"
	"digital-checkout/internal/infra/sched"
	"digital-checkout/internal/infra/worker"
	"digital-checkout/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

type storage struct {
	credits  repository.CreditTransactionRepository
	orders   repository.OrderRepository
	access   repository.ProductAccessRepository
	products repository.ProductRepository
	tm       repository.TransactionManager
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "", "path to YAML config file (env only when empty)")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, in-memory storage fallback)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
	}

	// ---- Storage ----
	st, closeStore := openStorage(ctx, cfg, redisClient, logger)
	defer closeStore()

	var carts repository.CartStore = memory.NewCartStore()
	var locker adapter.Locker = memory.NewLocker()
	if redisClient != nil {
		locker = red.NewLocker(redisClient)
		if cfg.Cart.Driver == "redis" {
			carts = red.NewCartStore(redisClient, cfg.Cart.TTL)
		}
	}

	// ---- Payment gateway ----
	gateway, err := payment.DefaultRegistry().Build(cfg.Payment)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Payment.Provider).Msg("payment gateway")
	}
	logger.Info().Str("provider", gateway.Name()).Msg("payment gateway ready")

	// ---- Use cases ----
	creditUC := usecase.NewCreditUseCase(st.credits, st.tm, cfg.Credits.PurchaseExpiresInDays, logger)
	orderUC := usecase.NewOrderUseCase(st.orders, st.access, st.tm, logger)
	cartUC := usecase.NewCartUseCase(carts, st.products)
	checkoutUC := usecase.NewCheckoutUseCase(cartUC, creditUC, orderUC, st.products, gateway, locker,
		usecase.CheckoutConfig{
			Currency:      cfg.Payment.Currency,
			ChargeTimeout: cfg.Payment.ChargeTimeout,
			LockTTL:       cfg.Checkout.LockTTL,
		}, logger)

	// ---- Background jobs ----
	pool := worker.NewPool(runtime.NumCPU(), logger)
	pool.Start(ctx)
	defer pool.Stop()

	expiry := sched.NewExpirationWorker(cfg.Credits.ExpirationInterval, creditUC, logger)
	go func() { _ = expiry.Run(ctx) }()
	reconciler := sched.NewOrderReconciler(orderUC, checkoutUC, pool, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	opts := api.Options{
		ExpiringWindowDays: cfg.Credits.ExpiringWindowDays,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		RateLimit:          cfg.RateLimit.Limit,
		RateWin:            cfg.RateLimit.Window,
	}
	if cfg.RateLimit.Enabled && redisClient != nil {
		opts.Limiter = red.NewRateLimiter(redisClient)
	}
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AllowUserHeader)
	srv := api.NewServer(checkoutUC, creditUC, orderUC, cartUC, st.products, auth, opts, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("storage", cfg.Storage.Driver).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func openStorage(ctx context.Context, cfg *config.Config, redisClient *red.Client, logger *zerolog.Logger) (storage, func()) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return storage{
			credits:  memory.NewCreditRepo(),
			orders:   memory.NewOrderRepo(),
			access:   memory.NewAccessRepo(),
			products: memory.NewProductRepo(),
			tm:       memory.NewTxManager(),
		}, func() {}
	}

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	if cfg.Database.ApplySchema {
		if err := pg.ApplySchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	var products repository.ProductRepository = pg.NewPostgresProductRepo(pool)
	if redisClient != nil {
		products = pg.NewProductRepoCacheDecorator(products, redisClient, cfg.Redis.TTL, logger)
	}
	return storage{
		credits:  pg.NewPostgresCreditRepo(pool),
		orders:   pg.NewPostgresOrderRepo(pool),
		access:   pg.NewPostgresAccessRepo(pool),
		products: products,
		tm:       pg.NewTxManager(pool),
	}, pool.Close
}
