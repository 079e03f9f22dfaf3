package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fencing-backend/auth"
	"fencing-backend/config"
	"fencing-backend/controllers"
	"fencing-backend/database"
	"fencing-backend/integrations"
	"fencing-backend/routes"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run migrations on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer utils.SyncLogger()
	defer database.Close(db)

	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	sessions, err := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	audit := services.NewAuditLogger(db, logger)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := integrations.NewKafkaAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		defer publisher.Close()
		audit.WithPublisher(publisher)
		logger.Info("audit events published to kafka", zap.String("topic", cfg.Kafka.AuditTopic))
	}

	var mailer services.Mailer = integrations.NewLogMailer(logger)
	if cfg.Mail.Host != "" {
		mailer = integrations.NewSMTPMailer(cfg.Mail)
	} else {
		logger.Warn("SMTP_HOST not set, quote emails are logged only")
	}

	photos, err := photoStore(cfg)
	if err != nil {
		return err
	}

	stripe := integrations.NewStripeGateway(cfg.Payments.StripeSecretKey, cfg.Payments.StripeWebhookSecret)
	if cfg.Payments.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout is unavailable")
	}

	h := &controllers.Handler{
		DB:       db,
		Sessions: sessions,
		Cookie:   controllers.CookieConfig{Name: cfg.Auth.CookieName, Secure: !cfg.IsDevelopment()},
		Logger:   logger,
		Audit:    audit,
		Users:    services.NewUserService(db, sessions, audit, logger),
		Tax:      services.NewTaxService(db),
		Quotes:   services.NewQuoteService(db, audit, mailer, logger),
		Invoices: services.NewInvoiceService(db, audit, logger),
		Payments: services.NewPaymentService(db, audit, stripe, logger, cfg.Payments.Currency, cfg.Payments.BaseURL),
		Jobs:     services.NewJobService(db, audit, photos, logger),
		Webhooks: stripe,
	}

	var limiterStorage fiber.Storage
	if cfg.Redis.Addr != "" {
		rs, err := database.NewRedisStorage(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rs.Close()
		limiterStorage = rs
	}

	app := routes.NewApp(cfg, h, db, limiterStorage)

	go func() {
		logger.Info("API server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	return nil
}

func photoStore(cfg *config.Config) (services.PhotoStore, error) {
	if cfg.Storage.S3Bucket != "" {
		s, err := integrations.NewS3Store(cfg.Storage.S3Bucket, cfg.Storage.S3Region)
		if err != nil {
			return nil, fmt.Errorf("photo storage: %w", err)
		}
		return s, nil
	}
	return integrations.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicURL), nil
}
