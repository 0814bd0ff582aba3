// Package routes defines the API routing configuration. It wires
// repositories, services, and handlers, and groups endpoints by the
// middleware they require.
package routes

import (
	"streampay/internal/config"
	"streampay/internal/handlers"
	"streampay/internal/middleware"
	"streampay/internal/repositories"
	"streampay/internal/services/auth"
	"streampay/internal/services/exchange"
	"streampay/internal/services/fee"
	"streampay/internal/services/gateway"
	"streampay/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes builds the dependency graph and registers every route on
// the app.
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client) {
	// Repositories
	cacheRepo := repositories.NewRedisCacheRepository(rdb)
	walletRepo := repositories.NewWalletRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Services
	authService := auth.NewService(userRepo)
	feeCalculator := fee.NewCalculator(fee.DefaultConfig())

	var rates ledger.RateProvider
	if rateURL := config.GetEnv("EXCHANGE_RATE_URL", ""); rateURL != "" {
		source := exchange.NewHTTPSource(rateURL, config.GetEnv("EXCHANGE_RATE_API_KEY", ""))
		rates = exchange.NewService(source, cacheRepo)
	}

	var paymentGateway gateway.PaymentGateway
	if stripeKey := config.GetEnv("STRIPE_SECRET_KEY", ""); stripeKey != "" {
		paymentGateway = gateway.NewStripeGateway(stripeKey)
	}

	ledgerService := ledger.NewService(
		walletRepo,
		transactionRepo,
		cacheRepo,
		feeCalculator,
		rates,
		paymentGateway,
		ledger.Config{
			DefaultCurrency: config.GetEnv("DEFAULT_CURRENCY", "USD"),
		},
		&ledger.NoopMetricsCollector{},
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService, walletRepo)
	paymentHandler := handlers.NewPaymentHandler(ledgerService, transactionRepo)

	app.Get("/health", handlers.HealthCheck(db, rdb))

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)

	// The gateway signs its notifications; no user token is involved.
	api.Post("/webhooks/gateway", paymentHandler.GatewayWebhook)

	// Authenticated endpoints
	protected := api.Use(middleware.Auth)

	protected.Post("/wallets", walletHandler.CreateWallet)
	protected.Get("/wallets", walletHandler.ListWallets)
	protected.Get("/wallets/:id", walletHandler.GetWallet)
	protected.Get("/wallets/:id/balance", walletHandler.GetBalance)
	protected.Get("/wallets/:id/transactions", walletHandler.GetHistory)
	protected.Get("/wallets/:id/stats", walletHandler.GetStats)

	protected.Post("/wallets/:id/deposit", walletHandler.Deposit)
	protected.Post("/wallets/:id/withdraw", walletHandler.Withdraw)
	protected.Post("/wallets/:id/transfer", walletHandler.Transfer)
	protected.Post("/wallets/:id/donate", walletHandler.Donate)
	protected.Post("/wallets/:id/deactivate", walletHandler.Deactivate)
	protected.Post("/wallets/:id/reactivate", walletHandler.Reactivate)

	protected.Post("/wallets/:id/gateway/deposit", paymentHandler.DepositViaGateway)
	protected.Post("/wallets/:id/gateway/withdraw", paymentHandler.WithdrawViaGateway)
	protected.Get("/transactions/:id", paymentHandler.GetTransaction)

	// Admin endpoints
	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Post("/wallets/:id/fee", walletHandler.ChargeFee)
	admin.Post("/wallets/:id/refund", walletHandler.Refund)
	admin.Get("/wallets/:id/consistency", walletHandler.CheckConsistency)
	admin.Get("/overview", walletHandler.PlatformOverview)
}
