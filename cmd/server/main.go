package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/config"
	"github.com/evalify/evalify-evaluator/internal/evaluator"
	"github.com/evalify/evalify-evaluator/internal/queue"
	"github.com/evalify/evalify-evaluator/internal/repository"
	"github.com/evalify/evalify-evaluator/internal/service"
	"github.com/evalify/evalify-evaluator/internal/transport/rest"
	"github.com/evalify/evalify-evaluator/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Error("failed to ping MongoDB", "error", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Error("failed to ping Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	// Queue runtime with durable Redis result backend
	backend := queue.NewRedisBackend(rdb, cfg.ResultTTL)
	rt := queue.New(backend, queue.Options{
		LaneWorkers:  cfg.LaneWorkers,
		DefaultLane:  cfg.DefaultLane,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		MaxRetryWait: cfg.MaxRetryWait,
		Logger:       log,
	})

	// Evaluation engine
	registry, err := evaluator.NewDefaultRegistry()
	if err != nil {
		log.Error("failed to build evaluator registry", "error", err)
		os.Exit(1)
	}
	progress := cache.NewProgressStore(rdb, cfg.ProgressTTL)
	quizRepo := repository.NewQuizRepository(db)

	engine := service.NewEngine(rt, progress, quizRepo, registry, cfg, log)
	if err := engine.RegisterTasks(); err != nil {
		log.Error("failed to register tasks", "error", err)
		os.Exit(1)
	}

	runCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	rt.Start(runCtx)
	log.Info("queue runtime started", "lanes", len(cfg.LaneWorkers))

	// HTTP surface
	authSvc := service.NewAuthService(cfg)
	container := &rest.Container{
		AuthService: authSvc,
		Engine:      engine,
		WSHandler:   ws.NewHandler(engine, log),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: rest.NewRouter(container),
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen and serve failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Error("queue runtime forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
