package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/cache"
	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/database"
	"github.com/GTDGit/gtd_backoffice/internal/handler"
	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/sse"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
	"github.com/GTDGit/gtd_backoffice/internal/worker"
)

// main is the application entrypoint for the billing back office API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting back office api")
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTExpiry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 4. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 5. Connect to Redis
	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 6. Repositories
	txManager := repository.NewTxManager(db)
	catalogRepo := repository.NewCatalogRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	staffRepo := repository.NewStaffUserRepository(db)
	cartStore := cache.NewCartStore(redisClient, cfg.Cart.TTL)

	// 7. Services
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	archiveSvc, err := service.NewArchiveService(ctx, cfg.Archive)
	if err != nil {
		log.Error().Err(err).Msg("archive storage setup failed")
		fmt.Fprintf(os.Stderr, "archive storage setup failed: %v\n", err)
		os.Exit(1)
	}

	staffSvc := service.NewStaffAuthService(staffRepo)
	if cfg.Admin.Email != "" {
		created, err := staffSvc.EnsureStaff(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name, models.RoleAdmin)
		if err != nil {
			log.Error().Err(err).Msg("failed to create bootstrap admin")
		} else if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
		}
	}

	catalogSvc := service.NewCatalogService(txManager, catalogRepo)
	customerSvc := service.NewCustomerService(customerRepo, invoiceRepo, paymentRepo)
	cartSvc := service.NewCartService(cartStore, catalogRepo)
	checkoutSvc := service.NewCheckoutService(txManager, cartStore, catalogRepo, customerRepo, invoiceRepo, notifier, cfg.Billing)
	invoiceSvc := service.NewInvoiceService(service.InvoiceDeps{
		Tx:        txManager,
		Invoices:  invoiceRepo,
		Customers: customerRepo,
		Catalog:   catalogRepo,
		Payments:  paymentRepo,
		Reminders: reminderRepo,
		Archiver:  archiveSvc,
		Notifier:  notifier,
		Billing:   cfg.Billing,
		Company:   cfg.Company,
	})
	paymentSvc := service.NewPaymentService(txManager, invoiceRepo, paymentRepo, notifier, cfg.Billing)
	reminderSvc := service.NewReminderService(invoiceRepo, reminderRepo, notifier)
	reportSvc := service.NewReportService(invoiceRepo, customerRepo, cfg.Company)

	// 8. Handlers and middleware
	loginLimiter := middleware.NewLoginRateLimiter()
	go loginLimiter.Cleanup(5*time.Minute, ctx.Done())

	handlers := &Handlers{
		Health:   handler.NewHealthHandler(handler.PingFunc(db.PingContext), redisClient),
		Auth:     handler.NewAuthHandler(staffSvc, loginLimiter),
		SSE:      handler.NewSSEHandler(hub),
		Catalog:  handler.NewCatalogHandler(catalogSvc),
		Customer: handler.NewCustomerHandler(customerSvc),
		Cart:     handler.NewCartHandler(cartSvc, checkoutSvc),
		Invoice:  handler.NewInvoiceHandler(invoiceSvc),
		Payment:  handler.NewPaymentHandler(paymentSvc),
		Reminder: handler.NewReminderHandler(reminderSvc),
		Report:   handler.NewReportHandler(reportSvc),
		Staff:    handler.NewStaffHandler(staffSvc),
	}

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, middleware.NewJWTMiddleware(), loginLimiter)

	// 10. Start workers
	overdue := worker.NewOverdueWorker(invoiceSvc, redisClient, cfg.Billing.OverdueSweepSchedule)
	if err := overdue.Start(ctx); err != nil {
		log.Error().Err(err).Msg("overdue worker failed to start")
		fmt.Fprintf(os.Stderr, "overdue worker failed to start: %v\n", err)
		os.Exit(1)
	}

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
