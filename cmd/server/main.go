package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/config"
	"github.com/videodub/api/internal/handler"
	"github.com/videodub/api/internal/middleware"
	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/internal/worker"
	"github.com/videodub/api/pkg/response"
)

// @title          Video Dubbing API
// @version        1.0
// @description    Dubs videos into another language with translated, synthesized speech.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	})).With("service", "video-dubbing-api")
	slog.SetDefault(log)

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		log.Warn("required API keys missing, dubbing will fail until configured", "missing", missing)
	}

	// Redis backs rate limiting and, optionally, the job store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	redisErr := redisClient.Ping(pingCtx).Err()
	cancelPing()
	if redisErr != nil {
		log.Warn("redis not available, rate limiting disabled", "addr", cfg.Redis.Addr, "error", redisErr)
	}

	validate := validator.New()

	// External clients
	videoClient := client.NewVideoDBClient(&cfg.VideoDB)
	voiceClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	llmClient := client.NewLLMClient(&cfg.OpenAI)

	// Object storage is optional; without it jobs finish in demo mode
	var storage client.StorageClient
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Info("object storage not configured, dubbed audio cannot be muxed", "reason", err)
	} else {
		storage = r2Client
	}

	// Job store
	var store service.JobStore
	var sweeper *service.RetentionSweeper
	if cfg.Jobs.Store == "redis" && redisErr == nil {
		store = service.NewRedisJobStore(redisClient, time.Duration(cfg.Jobs.TTLHours)*time.Hour)
		log.Info("using redis job store", "ttl_hours", cfg.Jobs.TTLHours)
	} else {
		if cfg.Jobs.Store == "redis" {
			log.Warn("redis job store requested but redis is unavailable, using memory store")
		}
		memStore := service.NewMemoryJobStore()
		store = memStore
		if cfg.Jobs.RetentionHours > 0 {
			sweeper = service.NewRetentionSweeper(memStore, time.Duration(cfg.Jobs.RetentionHours)*time.Hour, log)
			if err := sweeper.Start(); err != nil {
				log.Warn("retention sweep not started", "error", err)
				sweeper = nil
			}
		}
	}

	languages := make(map[string]string, len(cfg.Languages.Supported))
	for _, code := range cfg.Languages.Supported {
		languages[code] = model.LanguageName(code)
	}

	// Services
	translationService := service.NewTranslationService(llmClient, log)
	voiceResolver := service.NewVoiceResolver(voiceClient, log)
	dubbingService := service.NewDubbingService(videoClient, voiceClient, storage, translationService, voiceResolver, service.DubbingOptions{
		MaxChars:  cfg.ElevenLabs.MaxChars,
		Languages: languages,
	}, log)

	// Background jobs run detached from the request that submitted them
	dubbingWorker := worker.NewDubbingWorker(store, dubbingService, log)
	runner := worker.NewRunner(ctx, dubbingWorker, log)
	jobService := service.NewJobService(store, runner, cfg.Languages, log)

	// Handlers
	dubbingHandler := handler.NewDubbingHandler(jobService, dubbingService, cfg.Languages.Supported, validate)
	voiceHandler := handler.NewVoiceHandler(dubbingService)
	systemHandler := handler.NewSystemHandler(dubbingService, map[string]bool{
		"videodb":    videoClient.IsConfigured(),
		"openai":     llmClient.IsConfigured(),
		"elevenlabs": voiceClient.IsConfigured(),
		"storage":    r2Client.IsConfigured(),
		"redis":      redisErr == nil,
	}, cfg.MissingKeys())

	var limitClient *redis.Client
	if redisErr == nil {
		limitClient = redisClient
	}
	rateLimiter := middleware.NewRateLimiter(limitClient, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", systemHandler.Root)
	app.Get("/health", systemHandler.Health)
	app.Get("/api/health", systemHandler.Health)

	api := app.Group("/api")
	api.Get("/languages", systemHandler.Languages)
	api.Get("/demo-video", systemHandler.DemoVideo)

	api.Get("/voices", voiceHandler.List)
	api.Delete("/voices/:voiceId", voiceHandler.Delete)

	api.Post("/preview-translation", rateLimiter.PreviewLimit(cfg.RateLimit.PreviewPerHour), dubbingHandler.PreviewTranslation)
	api.Post("/dub-video", rateLimiter.DubLimit(cfg.RateLimit.DubPerHour), dubbingHandler.DubVideo)
	api.Get("/job-status/:jobId", dubbingHandler.JobStatus)
	api.Get("/videos/:videoId/search", dubbingHandler.Search)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Info("server starting", "addr", addr, "env", cfg.Server.Env, "job_store", cfg.Jobs.Store)
	if err := app.Listen(addr); err != nil {
		log.Error("server error", "error", err)
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, 30*time.Second)
	defer cancelWait()
	if err := runner.Wait(waitCtx); err != nil {
		log.Warn("dubbing jobs still running at exit", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
