package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "tripdesk/internal/api/http"
	"tripdesk/internal/config"
	"tripdesk/internal/registration"
	"tripdesk/internal/scheduler"
	"tripdesk/internal/store"
	"tripdesk/internal/weather"
	"tripdesk/internal/weather/feeds"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Shared HTTP client for outbound feed calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	feed, err := buildFeed(cfg, httpClient)
	if err != nil {
		slog.Error("failed to build forecast feed", "feed", cfg.Feed, "error", err)
		os.Exit(1)
	}
	limited := weather.NewRateLimitedFeed(feed, cfg.FeedRateLimitRPS, cfg.FeedRateLimitBurst)
	service := weather.NewService(limited, cfg.HTTPTimeout)

	tableClient, err := buildTableClient(cfg)
	if err != nil {
		slog.Error("failed to build store client", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	regs := registration.NewStore(tableClient, cfg.RegistrationsTable)

	// Periodic registration digest.
	digest := scheduler.NewDigest(regs, cfg.DigestInterval)
	if err := digest.Start(); err != nil {
		slog.Error("failed to start registration digest", "error", err)
		os.Exit(1)
	}
	defer digest.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "tripdesk",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		Views:                 httpapi.NewViewsEngine(),
		ErrorHandler:          errorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tripdesk",
		})
	})

	// Page and API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:       service,
		Registrations: regs,
		CookieSecret:  cfg.CookieSecret,
		CookieMaxAge:  cfg.CookieMaxAge,
		City:          cfg.City,
		Units:         cfg.Units,
		ForecastDays:  cfg.ForecastDays,
		RecentLimit:   cfg.RecentLimit,
	})

	// Start server with graceful shutdown
	go func() {
		slog.Info("server listening", "port", cfg.Port, "city", cfg.City, "feed", limited.Name())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}

// buildFeed constructs the configured forecast source. Feeds verify their
// credentials at construction, so a missing key stops the boot here.
func buildFeed(cfg *config.AppConfig, client *http.Client) (weather.ForecastFeed, error) {
	switch cfg.Feed {
	case config.FeedOpenWeather:
		return feeds.NewOpenWeatherFeed(client, cfg.OpenWeatherAPIKey)
	case config.FeedWeatherAPI:
		return feeds.NewWeatherAPIFeed(client, cfg.WeatherAPIKey)
	case config.FeedOpenMeteo:
		return feeds.NewOpenMeteoFeed(client, cfg.GeocoderAPIKey)
	}
	return nil, fmt.Errorf("unknown feed %q", cfg.Feed)
}

// buildTableClient picks the registration table backend.
func buildTableClient(cfg *config.AppConfig) (registration.TableClient, error) {
	if cfg.StoreBackend == config.StoreDynamo {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewDynamoClient(ctx, cfg.DynamoEndpoint)
	}
	slog.Info("using in-memory registration store")
	return store.NewMemory(0), nil
}

// errorHandler is the centralized error response. Expected fiber errors
// keep their message; anything else is logged and hidden behind a generic
// response so internals never reach a client.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		slog.Error("unhandled request error", "path", c.Path(), "error", err)
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
	return c.Status(code).SendString(message)
}
