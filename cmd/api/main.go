package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/analyzer"
	"github.com/osint-brain/backend/internal/api/handlers"
	"github.com/osint-brain/backend/internal/brain"
	"github.com/osint-brain/backend/internal/cache/redis"
	"github.com/osint-brain/backend/internal/correlation"
	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/internal/metrics"
	"github.com/osint-brain/backend/internal/modules"
	"github.com/osint-brain/backend/internal/modules/remote"
	"github.com/osint-brain/backend/internal/orchestrator"
	"github.com/osint-brain/backend/pkg/config"
	appLogger "github.com/osint-brain/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting OSINT correlation engine")

	metrics.Init()

	registry := modules.NewRegistry()
	for _, mc := range cfg.Modules {
		caps := make([]investigation.Capability, 0, len(mc.Capabilities))
		for _, c := range mc.Capabilities {
			caps = append(caps, investigation.Capability(c))
		}
		m := remote.New(mc.ID, mc.Endpoint, mc.APIKey, caps, time.Duration(mc.TimeoutSec)*time.Second)
		if err := registry.Register(m); err != nil {
			appLogger.Fatal("Failed to register module", zap.String("module", mc.ID), zap.Error(err))
		}
		appLogger.Info("Registered evidence module",
			zap.String("module", mc.ID),
			zap.Strings("capabilities", mc.Capabilities),
		)
	}
	if registry.Len() == 0 {
		appLogger.Warn("No evidence modules configured; investigations will produce empty reports")
	}

	orch := orchestrator.New(orchestrator.Config{
		ProbeTimeout:   time.Duration(cfg.Orchestrator.ProbeTimeoutSec) * time.Second,
		MaxAttempts:    cfg.Orchestrator.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Orchestrator.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Orchestrator.MaxBackoffMS) * time.Millisecond,
		GracePeriod:    time.Duration(cfg.Orchestrator.GracePeriodSec) * time.Second,
		CallsPerMinute: cfg.Orchestrator.CallsPerMinute,
	}, registry)

	engine := correlation.NewEngine(correlation.Config{
		LexicalWeight:       cfg.Correlation.LexicalWeight,
		TemporalWeight:      cfg.Correlation.TemporalWeight,
		CorroborationWeight: cfg.Correlation.CorroborationWeight,
		LinkThreshold:       cfg.Correlation.LinkThreshold,
		DistinctThreshold:   cfg.Correlation.DistinctThreshold,
		EvidenceSaturation:  cfg.Correlation.EvidenceSaturation,
	})

	b := brain.New(analyzer.New(), orch, engine)

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		b = b.WithCache(redisClient, time.Duration(cfg.Cache.ReportTTLMinutes)*time.Minute)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	investigateHandler := handlers.NewInvestigateHandler(b)
	modulesHandler := handlers.NewModulesHandler(registry)

	api := app.Group("/api/v1")

	api.Post("/investigate", investigateHandler.HandleInvestigate)
	api.Get("/modules", modulesHandler.ListModules)

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ready",
			"modules": registry.Len(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
