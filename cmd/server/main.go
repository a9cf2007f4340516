package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/dltrh/devision-job-platform/config"
	"github.com/dltrh/devision-job-platform/internal/activation"
	"github.com/dltrh/devision-job-platform/internal/api/rest"
	"github.com/dltrh/devision-job-platform/internal/api/rest/handlers"
	"github.com/dltrh/devision-job-platform/internal/entitlement"
	"github.com/dltrh/devision-job-platform/internal/events"
	"github.com/dltrh/devision-job-platform/internal/flow"
	"github.com/dltrh/devision-job-platform/internal/gateway"
	"github.com/dltrh/devision-job-platform/internal/intent"
	"github.com/dltrh/devision-job-platform/internal/metrics"
	"github.com/dltrh/devision-job-platform/internal/repository"
	"github.com/dltrh/devision-job-platform/internal/repository/postgres"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		// Пропускаем ошибку, если .env файл не найден
	}

	// Инициализация логгера
	log = logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()
	purchaseMetrics := metrics.NewPurchaseMetrics(promRegistry, log)
	systemMetrics := metrics.NewSystemMetrics(promRegistry, log)

	// Запускаем сбор системных метрик
	systemMetrics.StartRecording(15 * time.Second)
	defer systemMetrics.Stop()

	// Аудит попыток покупки: Postgres, либо память при его отсутствии
	var attempts repository.AttemptRepository
	dbPool, err := postgres.NewConnection(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Warn("Database unavailable, using in-memory attempt audit: %v", err)
		attempts = repository.NewInMemoryAttemptRepository(log)
	} else {
		defer dbPool.Close()
		attempts = postgres.NewAttemptRepository(dbPool, log)
	}

	// Публикация событий покупки в Kafka, если она включена
	var purchaseEvents events.PurchaseProducer
	if cfg.Kafka.Enabled {
		if err := events.EnsureTopics(cfg.Kafka.Brokers, log); err != nil {
			log.Fatal("Failed to ensure Kafka topics: %v", err)
		}

		kafkaConfig := events.NewConfig(cfg.Kafka.Brokers)
		kafkaProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, events.NewSaramaConfig(kafkaConfig))
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}

		purchaseEvents = events.NewKafkaPurchaseProducer(kafkaProducer, log)
		defer purchaseEvents.Close()
	}

	// Клиенты внешних сервисов
	intentClient := intent.NewClient(cfg.Intent.BaseURL, time.Duration(cfg.Intent.Timeout)*time.Second, log)
	entitlementClient := entitlement.NewClient(cfg.Entitlement.BaseURL, time.Duration(cfg.Entitlement.Timeout)*time.Second, log)

	gatewayAdapter := gateway.NewHTTPAdapter(gateway.Config{
		BaseURL:            cfg.Gateway.BaseURL,
		Timeout:            time.Duration(cfg.Gateway.Timeout) * time.Second,
		ActionPollInterval: time.Duration(cfg.Gateway.ActionPollInterval) * time.Second,
	}, func(intentID string) {
		log.Info("Payment intent %s requires additional payer action", intentID)
	}, log)

	// Опрос активации всегда ходит мимо кэша: кэш обслуживает только чтение
	poller := activation.NewPoller(entitlementClient, activation.Policy{
		MaxAttempts: cfg.Activation.MaxAttempts,
		Interval:    time.Duration(cfg.Activation.IntervalMs) * time.Millisecond,
	}, purchaseMetrics, log)

	// Кэш статусов подписок для читающей ручки
	var statuses entitlement.StatusReader = entitlementClient
	var cacheInvalidator handlers.CacheInvalidator
	if cfg.Redis.Addr != "" {
		cachedReader, err := entitlement.NewCachedReader(entitlementClient, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("Redis unavailable, serving entitlement statuses without cache: %v", err)
		} else {
			defer cachedReader.Close()
			statuses = cachedReader
			cacheInvalidator = cachedReader
		}
	}

	manager := flow.NewManager(flow.Dependencies{
		Intents:  intentClient,
		Gateway:  gatewayAdapter,
		Poller:   poller,
		Attempts: attempts,
		Events:   purchaseEvents,
		Metrics:  purchaseMetrics,
	}, log)
	defer manager.Close()

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Настройка маршрутизатора
	flowHandler := handlers.NewFlowHandler(manager, cacheInvalidator, log)
	entitlementHandler := handlers.NewEntitlementHandler(statuses, entitlementClient, log)
	attemptHandler := handlers.NewAttemptHandler(attempts, log)
	router := rest.SetupRouter(log, promRegistry, flowHandler, entitlementHandler, attemptHandler)

	// Создание и запуск HTTP сервера
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
