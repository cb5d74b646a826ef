package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compasshq/compass-backend/internal/db"
	"github.com/compasshq/compass-backend/internal/handlers"
	"github.com/compasshq/compass-backend/internal/middleware"
	"github.com/compasshq/compass-backend/internal/observability"
	"github.com/compasshq/compass-backend/internal/platform/envutil"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/lookup"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/platform/rediscache"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/server"
	"github.com/compasshq/compass-backend/internal/services"
)

func main() {
	log, err := logger.New(envutil.String("APP_ENV", "development"))
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "compass-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
	})

	database, err := db.NewService(log)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}
	gdb := database.DB()

	cache, err := rediscache.New(log)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer cache.Close()

	ai, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("failed to build llm client", "error", err)
	}
	bookLookup := lookup.NewGoogleBooksClient(log)
	videoLookup := lookup.NewYouTubeClient(log)

	userRepo := repos.NewUserRepo(gdb, log)
	userTokenRepo := repos.NewUserTokenRepo(gdb, log)
	profileRepo := repos.NewProfileRepo(gdb, log)
	memoryRepo := repos.NewMemoryRepo(gdb, log)
	chatRepo := repos.NewChatRepo(gdb, log)
	messageRepo := repos.NewMessageRepo(gdb, log)
	goalRepo := repos.NewGoalRepo(gdb, log)
	bookRepo := repos.NewBookRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	feedbackRepo := repos.NewFeedbackRepo(gdb, log)

	jwtSecret := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	authService := services.NewAuthService(gdb, log,
		userRepo, profileRepo, userTokenRepo,
		jwtSecret,
		envutil.Seconds("ACCESS_TOKEN_TTL_SECONDS", 15*time.Minute),
		envutil.Seconds("REFRESH_TOKEN_TTL_SECONDS", 30*24*time.Hour),
	)
	chatService := services.NewChatService(gdb, log, chatRepo, messageRepo, ai)
	extractionService := services.NewExtractionService(log, memoryRepo, profileRepo, ai)
	streamService := services.NewStreamService(log,
		chatRepo, messageRepo, goalRepo, memoryRepo,
		chatService, extractionService, cache, ai)
	recommendationService := services.NewRecommendationService(log,
		bookRepo, videoRepo, feedbackRepo, bookLookup, videoLookup, ai)
	interviewService := services.NewInterviewService(gdb, log,
		userRepo, chatRepo, messageRepo,
		extractionService, recommendationService,
		services.NewCompletionPolicyFromEnv(log, ai), ai)
	goalService := services.NewGoalService(log, goalRepo)
	memoryService := services.NewMemoryService(log, memoryRepo)
	materialService := services.NewMaterialService(log, bookRepo, videoRepo, feedbackRepo, ai)

	authmw := middleware.NewAuthMiddleware(log, authService)
	router := server.NewRouter(server.Handlers{
		Healthcheck: handlers.NewHealthcheckHandler(),
		Auth:        handlers.NewAuthHandler(log, authService),
		User:        handlers.NewUserHandler(log, interviewService),
		Chat:        handlers.NewChatHandler(log, chatService, streamService),
		Memory:      handlers.NewMemoryHandler(log, memoryService),
		Goal:        handlers.NewGoalHandler(log, goalService),
		Interview:   handlers.NewInterviewHandler(log, interviewService),
		Material:    handlers.NewMaterialHandler(log, materialService, recommendationService),
	}, authmw)

	srv := &http.Server{
		Addr:              ":" + envutil.String("PORT", "8080"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error("tracing shutdown failed", "error", err)
	}
}
