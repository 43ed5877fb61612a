package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "dicers-bot/docs"
	"dicers-bot/internal/common/config"
	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/common/middleware"
	dicersHTTP "dicers-bot/internal/features/dicers/delivery/http"
	"dicers-bot/internal/features/dicers/repository"
	fileRepo "dicers-bot/internal/features/dicers/repository/file"
	redisRepo "dicers-bot/internal/features/dicers/repository/redis"
	"dicers-bot/internal/features/dicers/scheduler"
	"dicers-bot/internal/features/dicers/service"
	"dicers-bot/internal/features/dicers/spam"
	"dicers-bot/internal/features/insult"
	"dicers-bot/internal/platform/redis"
	"dicers-bot/internal/platform/telegram"
	"dicers-bot/internal/workers"
)

// @title           Dicers Bot Status API
// @version         1.0
// @description     Read-only view of the rooms served by the dicers bot.

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data of a bot owner

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("dicers-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init("dicers-bot", cfg.Debug)

	logger.Info().
		Str("version", cfg.Version).
		Bool("debug", cfg.Debug).
		Msg("Starting dicers bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, notifier, closeStorage := openStorage(ctx, cfg)
	defer closeStorage()

	bot, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	registry := service.NewRegistry(service.Deps{
		Transport: bot,
		Scheduler: service.TimerScheduler(),
		Clock:     service.SystemClock(),
		Insults:   insult.NewStore(cfg.Storage.InsultsFile),
		Notifier:  notifier,
		Settings:  settings(cfg),
	}, repo, service.RegistryConfig{
		Owners:        cfg.Telegram.OwnerIDs,
		AdminCacheTTL: cfg.Event.AdminCacheTTL,
		Version:       cfg.Version,
	})
	if err := registry.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to restore state")
	}

	cron, err := scheduler.New(cfg.Location(), scheduler.Times{
		EarlyReset:  cfg.Schedule.EarlyReset,
		OpenAttend:  cfg.Schedule.OpenAttend,
		OpenDice:    cfg.Schedule.OpenDice,
		WeeklyReset: cfg.Schedule.WeeklyReset,
	}, registry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure schedule")
	}
	cron.Start()
	defer cron.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	bot.Poll(ctx, registry)

	logger.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := registry.Persist(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to persist state on shutdown")
	}

	logger.Info().Msg("Bot exited")
}

// openStorage uses Redis when REDIS_ADDR is set and the state file
// otherwise. Attendance is only published when Redis is available.
func openStorage(ctx context.Context, cfg *config.Config) (repository.SnapshotRepository, service.AttendanceNotifier, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info().Str("path", cfg.Storage.StateFile).Msg("Using file state repository")
		return fileRepo.NewFileSnapshotRepository(cfg.Storage.StateFile), service.NewLogNotifier(), func() {}
	}

	rdb, err := redis.Open(ctx, redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MasterName: cfg.Redis.MasterName,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	logger.Info().
		Str("key", cfg.Redis.StateKey).
		Str("stream", cfg.Redis.AttendanceStream).
		Msg("Using Redis state repository")

	repo := redisRepo.NewRedisSnapshotRepository(rdb, cfg.Redis.StateKey)
	notifier := workers.NewAttendanceStream(rdb, cfg.Redis.AttendanceStream)
	return repo, notifier, func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Redis")
		}
	}
}

func settings(cfg *config.Config) service.Settings {
	s := service.DefaultSettings()
	s.Location = cfg.Location()
	s.AbsenceCheckDelay = cfg.Event.AbsenceCheckDelay
	s.CurfewHour = cfg.Event.CurfewHour
	s.EasterEggPair = cfg.Event.EasterEggPair
	s.EasterEggSuffix = cfg.Event.EasterEggSuffix
	s.HistoryLimit = cfg.Spam.HistoryLimit
	s.Spam = spam.Config{
		CheckTimeframe:            cfg.Spam.CheckTimeframe,
		DifferentMessageLimit:     cfg.Spam.DifferentMessageLimit,
		DifferentMessageTimeframe: cfg.Spam.DifferentMessageTimeframe,
		ConsecutiveMessageLimit:   cfg.Spam.ConsecutiveMessageLimit,
		ConsecutiveTimeframe:      cfg.Spam.ConsecutiveTimeframe,
		SameMessageLimit:          cfg.Spam.SameMessageLimit,
		SameMessageTimeframe:      cfg.Spam.SameMessageTimeframe,
	}
	return s
}

func newRouter(cfg *config.Config, registry *service.Registry) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.InitDataHeader, middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	handler := dicersHTTP.NewHandler(registry, cfg.Version)
	handler.RegisterProbes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL))
	api.Use(middleware.RequireOwner(cfg.IsOwner))
	handler.RegisterRoutes(api)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
