package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testwise-backend/internal/config"
	"testwise-backend/internal/database"
	"testwise-backend/internal/handlers"
	"testwise-backend/internal/middleware"
	"testwise-backend/internal/repository"
	"testwise-backend/internal/router"
	"testwise-backend/internal/services"
	"testwise-backend/internal/websocket"
	"testwise-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting TestWise Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	groupRepo := repository.NewGroupRepo(pool)
	topicRepo := repository.NewTopicRepo(pool)
	sectionRepo := repository.NewSectionRepo(pool)
	subsectionRepo := repository.NewSubsectionRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)
	testRepo := repository.NewTestRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	eventPublisher := services.NewRedisEventPublisher(redisClients.PubSub)
	progressService := services.NewProgressService(topicRepo, sectionRepo, subsectionRepo, testRepo, progressRepo, eventPublisher)
	attemptService := services.NewAttemptService(testRepo, questionRepo, progressService, eventPublisher)
	generatorService := services.NewGeneratorService(topicRepo, sectionRepo, questionRepo, testRepo)
	fileService := services.NewFileService(cfg.StoragePath)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	userService := services.NewUserService(userRepo)

	// ──── Step 5: Bootstrap Admin Account ────
	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("✗ Admin bootstrap failed: %v", err)
	}

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupRepo)
	topicHandler := handlers.NewTopicHandler(topicRepo, progressService)
	sectionHandler := handlers.NewSectionHandler(sectionRepo, progressService)
	subsectionHandler := handlers.NewSubsectionHandler(subsectionRepo, progressService, fileService, redisClients.Queue)
	questionHandler := handlers.NewQuestionHandler(questionRepo)
	testHandler := handlers.NewTestHandler(testRepo, progressService, attemptService, generatorService)
	progressHandler := handlers.NewProgressHandler(progressRepo, progressService)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, fileService, subsectionRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		userHandler,
		groupHandler,
		topicHandler,
		sectionHandler,
		subsectionHandler,
		questionHandler,
		testHandler,
		progressHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ TestWise Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
