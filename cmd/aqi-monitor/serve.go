package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/aqi-monitor/internal/api/http"
	"github.com/i474232898/aqi-monitor/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic refresh and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		return serve(a)
	},
}

func serve(a *app) error {
	// Scheduler that periodically refreshes every location.
	sched := scheduler.New(a.service, a.cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               "aqi-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          a.cfg.FetchTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	server.Use(logger.New())
	server.Use(recover.New())
	server.Use(cors.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		var lastRefresh *time.Time
		if snap := a.service.All(); !snap.RefreshedAt.IsZero() {
			lastRefresh = &snap.RefreshedAt
		}
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      "aqi-monitor",
			"version":      version,
			"last_refresh": lastRefresh,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(server, a.service)

	go func() {
		log.Printf("INFO: listening on :%s", a.cfg.Port)
		if err := server.Listen(":" + a.cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
