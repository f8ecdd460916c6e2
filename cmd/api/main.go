// @title TubeQuiz API
// @version 1.0
// @description Turns YouTube videos into 10-question multiple-choice quizzes.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name access_token
// @description The access_token cookie set by /login/. An Authorization: Bearer header is accepted too.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "tubequiz/cmd/api/docs"
	"tubequiz/internal/adapter"
	"tubequiz/internal/adapter/quizgen"
	"tubequiz/internal/adapter/whisper"
	"tubequiz/internal/adapter/ytdlp"
	"tubequiz/internal/cache"
	"tubequiz/internal/config"
	"tubequiz/internal/database"
	"tubequiz/internal/handler"
	"tubequiz/internal/logger"
	"tubequiz/internal/middleware"
	"tubequiz/internal/pipeline"
	"tubequiz/internal/repository"
	"tubequiz/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Connect to database
	db, err := database.NewSQLXOracleDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	appLogger.Info("RedisCacheAdapter initialized")

	// Initialize repositories
	txManager := repository.NewTransactionManagerAdapter(db)
	quizRepository := repository.NewQuizRepository(db, txManager)
	userRepository := repository.NewSQLXUserRepository(db)

	// Quiz generation pipeline
	models := whisper.NewModelCache(whisper.NewCLIEngine(cfg.Whisper.Binary), cfg.Whisper.Model, cfg.Whisper.DownloadRoot)
	orchestrator := pipeline.NewOrchestrator(
		ytdlp.NewFetcher(cfg.YtDlp),
		whisper.NewTranscriber(models),
		quizgen.NewGeminiQuizGenerator(cfg.Gemini, nil),
		quizRepository,
		cfg.Pipeline.TempDir,
	)
	appLogger.Info("Quiz pipeline initialized",
		zap.String("whisper_model", cfg.Whisper.Model),
		zap.String("gemini_model", cfg.Gemini.Model))

	// Initialize services
	quizService := service.NewQuizService(quizRepository, orchestrator, cacheAdapter, cfg.Cache.QuizTTL, cfg.Pipeline.Timeout)

	authService, err := service.NewAuthService(userRepository, cacheAdapter, cfg)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}
	appLogger.Info("AuthService initialized")

	userService := service.NewUserService(userRepository)

	// Initialize handlers
	handlers := handler.Handlers{
		Quiz: handler.NewQuizHandler(quizService),
		Auth: handler.NewAuthHandler(authService, cfg),
		User: handler.NewUserHandler(userService),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(cacheAdapter.Ping),
		}),
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		MaxAge:           300,
	}))
	app.Use(recover.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	handler.SetupRoutes(app, handlers, authService)

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
