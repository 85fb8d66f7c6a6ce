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

	"gamestore-engine/config"
	"gamestore-engine/internal/api"
	"gamestore-engine/internal/broker"
	"gamestore-engine/internal/redisclient"
	"gamestore-engine/internal/service"
	"gamestore-engine/internal/store"
	"gamestore-engine/internal/util"
	"gamestore-engine/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting game store engine")

	tp, err := util.InitTracer("gamestore-engine", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	loyaltyService := service.NewLoyaltyService(db, eventPublisher,
		cfg.Business.LoyaltyEarnDivisor, cfg.Business.LoyaltyRedeemRate)
	orderService := service.NewOrderService(db, redisClient, eventPublisher,
		loyaltyService, cfg.Business.TaxRate)
	preOrderService := service.NewPreOrderService(db, eventPublisher, cfg.Business.MinDepositPct)
	returnService := service.NewReturnService(db, redisClient, eventPublisher,
		cfg.Business.ReturnWindowDays)
	inventoryService := service.NewInventoryService(db, redisClient)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	returnConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	returnWorker := worker.NewReturnWorker(returnConsumer, returnService)
	go func() {
		if err := returnWorker.Start(workerCtx); err != nil {
			log.Printf("Return worker error: %v", err)
		}
	}()

	preOrderWorker := worker.NewPreOrderWorker(preOrderService,
		time.Duration(cfg.Business.PreOrderPollSeconds)*time.Second)
	go func() {
		if err := preOrderWorker.Start(workerCtx); err != nil {
			log.Printf("Pre-order worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, loyaltyService, preOrderService, returnService, inventoryService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	returnWorker.Stop()

	log.Println("Server exited")
}
