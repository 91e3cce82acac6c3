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

	"deal-feed-service/config"
	"deal-feed-service/internal/api"
	"deal-feed-service/internal/broker"
	"deal-feed-service/internal/feed"
	"deal-feed-service/internal/redisclient"
	"deal-feed-service/internal/service"
	"deal-feed-service/internal/store"
	"deal-feed-service/internal/util"
	"deal-feed-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting deal feed service")

	tp, err := util.InitTracer("deal-feed-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("Failed to apply database schema", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeals)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicDeals))

	commandProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCommands)
	defer commandProducer.Close()
	commandPublisher := broker.NewEventPublisher(commandProducer)

	logger.Info("Feed configured",
		zap.String("publisher_id", cfg.Feed.PublisherID),
		zap.String("feed_id", cfg.Feed.FeedID))

	fetcher := feed.NewFetcher(feed.FeedConfig{
		BaseURL: cfg.Feed.BaseURL,
		APIKey:  cfg.Feed.APIKey,
		FeedID:  cfg.Feed.FeedID,
		Columns: feed.ColumnNames(),
	}, cfg.Feed.FetchTimeout)

	ingestService := service.NewIngestService(
		db,
		fetcher,
		db,
		feed.NewKeywordMatcher(cfg.Feed.BrandKeywords...),
		service.IngestConfig{
			MinDiscount:         cfg.Feed.MinDiscountPercent,
			MaxBrands:           cfg.Feed.MaxBrands,
			UpsertWorkers:       cfg.Feed.UpsertWorkers,
			UpsertRatePerSecond: cfg.Feed.UpsertRatePerSecond,
		},
	).WithPublisher(eventPublisher).WithCache(redisClient)

	scheduler := service.NewScheduler(ingestService, service.SchedulerConfig{
		MinInterval: cfg.Scheduler.MinUpdateInterval,
		Period:      cfg.Scheduler.UpdatePeriod,
		LockTTL:     cfg.Scheduler.LockTTL,
	}).WithLock(redisClient)

	productService := service.NewProductService(db, redisClient, cfg.Feed.MinDiscountPercent, cfg.Feed.StatsCacheTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	commandConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCommands, cfg.Kafka.ConsumerGroup)
	triggerWorker := worker.NewTriggerWorker(commandConsumer, scheduler)
	go func() {
		if err := triggerWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Trigger worker error", zap.Error(err))
		}
	}()

	scheduler.StartPeriodicUpdates()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(productService, scheduler).WithCommandPublisher(commandPublisher)
	handler.AddReadinessCheck("database", db.Ping)
	handler.AddReadinessCheck("redis", redisClient.Ping)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scheduler.StopPeriodicUpdates()
	workerCancel()
	triggerWorker.Stop()

	logger.Info("Waiting for in-flight feed run")
	scheduler.Wait()

	logger.Info("Server exited")
}
