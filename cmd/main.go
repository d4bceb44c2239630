package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gstbill/internal/caching"
	"gstbill/internal/config"
	"gstbill/internal/delivery"
	"gstbill/internal/events"
	"gstbill/internal/gst"
	"gstbill/internal/handlers"
	"gstbill/internal/jobs/background"
	"gstbill/internal/middleware"
	"gstbill/internal/repositories"
	"gstbill/internal/services"
	"gstbill/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	// Repositories
	customerRepo := repositories.NewCustomerRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	couponRepo := repositories.NewCouponRepo(pool)

	// Cache
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Object storage for rendered invoices
	docStore, err := delivery.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}
	if err := docStore.EnsureBucketExists(ctx); err != nil {
		log.Warn().Err(err).Msg("could not ensure invoice bucket exists")
	}

	// Services
	publisher := events.NewPublisher()
	calculator := gst.NewCalculator(cfg.CompanyState)

	invoiceSvc := services.NewInvoiceService(pool, invoiceRepo, customerRepo, productRepo, paymentRepo, calculator, cfg, publisher)
	couponSvc := services.NewCouponService(pool, couponRepo, cacheSvc, cfg)
	customerSvc := services.NewCustomerService(customerRepo)
	productSvc := services.NewProductService(productRepo, cacheSvc)

	mailer := delivery.NewMailer(cfg)
	deliverySvc := delivery.NewService(invoiceSvc, customerRepo, docStore, mailer, cacheSvc, cfg)
	publisher.Subscribe(deliverySvc.HandleEvent)

	// Background jobs
	scheduler, err := background.NewJobScheduler(couponRepo, productRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("job scheduler shutdown failed")
		}
	}()

	// Handlers
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, deliverySvc)
	couponHandlers := handlers.NewCouponHandlers(couponSvc)
	customerHandlers := handlers.NewCustomerHandlers(customerSvc)
	productHandlers := handlers.NewProductHandlers(productSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/healthz", healthHandlers.HealthCheck)

	api := e.Group("")
	api.Use(middleware.JWT(cfg.JWTSecret))
	api.Use(middleware.UserContext())

	api.POST("/invoices", invoiceHandlers.CreateInvoice)
	api.GET("/invoices", invoiceHandlers.ListInvoices)
	api.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	api.PUT("/invoices/:id", invoiceHandlers.UpdateInvoice)
	api.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	api.PATCH("/invoices/:id/status", invoiceHandlers.UpdateInvoiceStatus)
	api.POST("/invoices/:id/payments", invoiceHandlers.RecordPayment)
	api.POST("/invoices/:id/send", invoiceHandlers.SendInvoice)
	api.GET("/invoices/:id/document", invoiceHandlers.GetInvoiceDocument)

	api.POST("/coupons", couponHandlers.CreateCoupon)
	api.GET("/coupons", couponHandlers.ListCoupons)
	api.DELETE("/coupons/:id", couponHandlers.DeleteCoupon)
	api.POST("/coupons/validate", couponHandlers.ValidateCoupon, middleware.RateLimitMiddleware(cacheSvc, 60, time.Minute))
	api.POST("/coupons/apply", couponHandlers.ApplyCoupon)
	api.POST("/coupons/:id/redeem", couponHandlers.RedeemCoupon)
	api.POST("/coupons/bulk", couponHandlers.BulkGenerateCoupons)
	api.GET("/coupons/:id/stats", couponHandlers.GetCouponStats)

	api.POST("/customers", customerHandlers.CreateCustomer)
	api.GET("/customers", customerHandlers.ListCustomers)
	api.GET("/customers/:id", customerHandlers.GetCustomer)
	api.PUT("/customers/:id", customerHandlers.UpdateCustomer)
	api.DELETE("/customers/:id", customerHandlers.DeleteCustomer)

	api.POST("/products", productHandlers.CreateProduct)
	api.GET("/products", productHandlers.ListProducts)
	api.GET("/products/low-stock", productHandlers.ListLowStockProducts)
	api.GET("/products/:id", productHandlers.GetProduct)
	api.PUT("/products/:id", productHandlers.UpdateProduct)
	api.DELETE("/products/:id", productHandlers.DeleteProduct)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
