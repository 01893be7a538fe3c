package main

import (
	"time"

	"github.com/fixlify/homeservices-api/bookings"
	config "github.com/fixlify/homeservices-api/configs"
	"github.com/fixlify/homeservices-api/database"
	"github.com/fixlify/homeservices-api/directory"
	"github.com/fixlify/homeservices-api/handlers"
	"github.com/fixlify/homeservices-api/jobs"
	"github.com/fixlify/homeservices-api/notifications"
	"github.com/fixlify/homeservices-api/payments"
	"github.com/fixlify/homeservices-api/realtime"
	"github.com/fixlify/homeservices-api/receipts"
	"github.com/fixlify/homeservices-api/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if err := database.Seed(db, cfg, log); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}

	gateway := payments.NewClient(payments.Config{
		BaseURL:   cfg.GatewayBaseURL,
		SecretKey: cfg.GatewaySecret,
		Timeout:   cfg.GatewayTimeout,
	}, log)

	mailer := notifications.NewMailer(notifications.Config{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.EmailSender,
		SenderName:  cfg.EmailSenderName,
	}, log)

	hub := realtime.NewHub(log)
	go hub.Run()

	store := bookings.NewStore(db)
	bookingCfg := bookings.Config{
		PlatformFeeCents:    cfg.PlatformFeeCents,
		Currency:            cfg.Currency,
		CancelLockHours:     cfg.CancelLockHours,
		PendingTimeoutHours: cfg.PendingTimeoutHours,
		ConfirmOnPayment:    cfg.ConfirmOnPayment,
	}
	bookingSvc := bookings.NewService(store, gateway,
		directory.NewServices(db), directory.NewUsers(db), mailer, hub, bookingCfg, log)
	reconciler := bookings.NewReconciler(store, gateway, mailer, hub, bookingCfg, log)

	receiptGen, err := receipts.NewGenerator("templates/receipt.html")
	if err != nil {
		log.Fatalf("failed to load receipt template: %v", err)
	}

	bookingJobs := jobs.NewBookingJobs(bookingSvc, reconciler, log)
	c := cron.New()
	c.AddFunc("*/5 * * * *", bookingJobs.ReconcilePayments)
	c.AddFunc("*/15 * * * *", bookingJobs.ExpirePending)
	c.Start()
	log.Info("booking sweeps scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "Home Services API",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).
				Errorf("unhandled error: %v", err)
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	bookingHandler := handlers.NewBookingHandler(bookingSvc, reconciler, receiptGen)
	paymentHandler := handlers.NewPaymentHandler(reconciler, log)
	adminHandler := handlers.NewAdminHandler(bookingSvc, store)

	routes.BookingRoutes(app, bookingHandler, cfg.JWTSecret)
	routes.PaymentRoutes(app, paymentHandler)
	routes.AdminRoutes(app, adminHandler, cfg.JWTSecret)
	routes.RealtimeRoutes(app, hub, cfg.JWTSecret)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	log.Infof("server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
