package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/config"
	"github.com/sandwich-learn/sandwich-api/internal/database"
	"github.com/sandwich-learn/sandwich-api/internal/handler"
	"github.com/sandwich-learn/sandwich-api/internal/middleware"
	"github.com/sandwich-learn/sandwich-api/internal/models"
	"github.com/sandwich-learn/sandwich-api/internal/repository"
	"github.com/sandwich-learn/sandwich-api/internal/router"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.WellbeingCheckpoint{}, &models.WellbeingCheckIn{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	pingers := map[string]handler.DependencyPinger{
		"postgres": func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	}

	var sessionStore session.Store
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient, cfg.SessionTTL, logger)
		pingers["redis"] = func() error {
			return redisClient.Ping(context.Background()).Err()
		}
	} else {
		logger.Warn().Msg("no redis url configured, using in-memory session store")
		sessionStore = session.NewMemoryStore()
	}

	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		natsConn, err = nats.Connect(cfg.NATSUrl)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to nats, progress events disabled")
		} else {
			defer natsConn.Close()
		}
	}

	tutor, err := upstream.NewClient(upstream.Config{
		BaseURL:          cfg.TutorBaseURL,
		Timeout:          cfg.TutorTimeout,
		StudyTipsTimeout: cfg.StudyTipsTimeout,
		RetryMax:         cfg.TutorRetryMax,
		Logger:           logger,
	})
	if err != nil {
		log.Fatalf("failed to create tutor client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewProgressPublisher(natsConn, "sandwich.progress", logger)

	wellbeingRepo := repository.NewWellbeingRepository(db)
	wellbeingService := service.NewWellbeingService(wellbeingRepo, tutor, validate, cfg.WellbeingInterval, logger)
	sessionService := service.NewSessionService(sessionStore, cfg.JWTSecret, cfg.SessionTTL, logger)
	chatService := service.NewChatService(sessionStore, tutor, logger)
	courseService := service.NewCourseService(sessionStore, tutor, wellbeingService, events, validate, cfg.PassThreshold, logger)
	quizService := service.NewQuizService(sessionStore, tutor, wellbeingService, events, cfg.PassThreshold, cfg.QuizTimeLimitMinutes, logger)
	tipsService := service.NewTipsService(sessionStore, tutor, cfg.PassThreshold, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:      &logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:   handler.NewSessionHandler(sessionService, logger),
		ChatHandler:      handler.NewChatHandler(chatService, logger),
		CourseHandler:    handler.NewCourseHandler(courseService, tipsService, logger),
		QuizHandler:      handler.NewQuizHandler(quizService, logger),
		WellbeingHandler: handler.NewWellbeingHandler(wellbeingService, logger),
		HealthPingers:    pingers,
		AuthMiddleware:   middleware.SessionProtected(cfg.JWTSecret),
		RateLimit:        middleware.RateLimit("api", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
