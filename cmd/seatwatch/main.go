package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"seatwatch/internal/config"
	"seatwatch/internal/feed"
	"seatwatch/internal/http/handlers"
	applog "seatwatch/internal/log"
	"seatwatch/internal/mail"
	"seatwatch/internal/repos"
	"seatwatch/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Mail: real SMTP only when credentials are configured.
	renderer, err := mail.NewRenderer(cfg.AppURL)
	if err != nil {
		log.Fatal(err)
	}
	var sender services.EmailSender = mail.NewLogSender(renderer)
	if cfg.SMTPEnabled() {
		smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			From:      cfg.FromEmail,
			MaxPerSec: cfg.SMTPMaxPerSec,
			Timeout:   cfg.SMTPTimeout,
		}, renderer)
		if err != nil {
			log.Fatal(err)
		}
		sender = smtpSender
	} else {
		log.Printf("[warn] SMTP credentials missing; seat alerts are logged, not sent")
	}

	fetcher := feed.NewHTTPFetcher(cfg.FeedURL, cfg.FeedPath, cfg.FeedTimeout)
	deps := handlers.NewDeps(db, cfg, fetcher, sender)

	app := fiber.New(fiber.Config{
		AppName:      "seatwatch",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.api.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Seat tracker API", "version": "1.0.0"})
	})
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	deps.Mount(app)
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	// ---------- Background passes ----------
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sched := services.NewScheduler(deps.SyncService, deps.Notifier, cfg.SyncInterval, cfg.NotifyInterval)
	sched.Start(ctx)

	go func() {
		<-ctx.Done()
		applog.Info(nil, "server.shutdown", nil)
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("[error] listen: %v", err)
	}
	stop()
	sched.Wait()
}
