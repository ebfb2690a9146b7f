package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/johanode/climate-weather-data/internal/api/http"
	"github.com/johanode/climate-weather-data/internal/climate"
	"github.com/johanode/climate-weather-data/internal/config"
	"github.com/johanode/climate-weather-data/internal/scheduler"
	"github.com/johanode/climate-weather-data/internal/store"
	"github.com/johanode/climate-weather-data/internal/weather"
	"github.com/johanode/climate-weather-data/internal/weather/providers"
)

const serviceName = "climate-weather-data"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := config.NewLogger(os.Stderr, "info", "json")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat).
		With().
		Str("service", serviceName).
		Logger()

	// Shared HTTP client for outbound SMHI calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Station catalog cache with configured retention.
	catalog := store.NewMemoryStore(cfg.CatalogMaxAge)

	// SMHI provider with resilience (backoff + circuit breaker).
	smhi := providers.NewSMHIProvider(providers.SMHIConfig{
		BaseURL:    cfg.SMHIBaseURL,
		Client:     httpClient,
		MaxRetries: cfg.FetchMaxRetries,
		Logger:     log,
	})

	var geo weather.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey, log)
	}

	service := weather.NewService(weather.ServiceConfig{
		Provider: smhi,
		Store:    catalog,
		Geocoder: geo,
		Logger:   log,
	})

	engine, err := climate.NewEngine(climate.EngineConfig{
		Fetcher: service,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load indicator catalogue")
	}

	// Scheduler that keeps the station catalog warm.
	sched := scheduler.New(scheduler.Config{
		Refresher:  service,
		Pruner:     catalog,
		Parameters: cfg.CatalogParameters,
		Interval:   cfg.CatalogRefreshInterval,
		Logger:     log,
	})
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Long ranges of hourly data take a while to download and stitch.
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: httpapi.ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(httpapi.RequestLogger(log))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(app, service, engine)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
