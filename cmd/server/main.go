package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/shopspring/decimal"

	"github.com/example/bizengo/internal/cache"
	"github.com/example/bizengo/internal/config"
	"github.com/example/bizengo/internal/database"
	"github.com/example/bizengo/internal/events"
	"github.com/example/bizengo/internal/handlers"
	"github.com/example/bizengo/internal/logger"
	"github.com/example/bizengo/internal/middleware"
	"github.com/example/bizengo/internal/routes"
	"github.com/example/bizengo/internal/services"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}

	rdb := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	if rdb != nil {
		if err := rdb.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, continuing")
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 256, log)
	}

	var mailer services.Mailer = services.LogMailer{Log: log}
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, cfg.OutboundTimeout, log)
	notifier := services.NewNotifier(publisher, telegram, log)
	locator := services.NewIPInfoLocator(cfg.GeoLookupURL, cfg.OutboundTimeout)
	uploader := services.NewHTTPUploader(cfg.UploadURL, cfg.OutboundTimeout)

	svc := routes.Services{
		Auth: services.NewAuthService(db, services.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			TokenTTL:     cfg.TokenExpires,
			SignupOTPTTL: cfg.SignupOTPTTL,
			ResetOTPTTL:  cfg.ResetOTPTTL,
		}, mailer, locator, log),
		Carts:      services.NewCartService(db),
		Orders:     services.NewOrderService(db, notifier, log),
		Payments:   services.NewPaymentService(db, cfg.PaystackSecretKey, rdb, notifier, log),
		Catalog:    services.NewCatalogService(db, rdb, uploader, log),
		Profiles:   services.NewProfileService(db, uploader, log),
		Reviews:    services.NewReviewService(db),
		Favourites: services.NewFavouriteService(db),
		Admin:      services.NewAdminService(db, log),
		Locator:    locator,
	}

	app := fiber.New(fiber.Config{
		AppName:      "Bizengo Marketplace",
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    20 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))

	routes.Register(app, svc, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.AppPort).Msg("starting server")
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("fiber.Listen error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("event publisher close failed")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
}
