package rest

import (
	"github.com/dltrh/devision-job-platform/internal/api/rest/handlers"
	"github.com/dltrh/devision-job-platform/internal/api/rest/middleware"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(
	log *logger.Logger,
	registry *prometheus.Registry,
	flowHandler *handlers.FlowHandler,
	entitlementHandler *handlers.EntitlementHandler,
	attemptHandler *handlers.AttemptHandler,
) *gin.Engine {
	// Инициализация Gin роутера
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		// Потоки покупки подписки
		flows := v1.Group("/flows")
		{
			flows.GET("/:session", flowHandler.GetFlow)
			flows.POST("/:session/confirm", flowHandler.Confirm)
			flows.POST("/:session/payment", flowHandler.InitiatePayment)
			flows.POST("/:session/retry", flowHandler.Retry)
			flows.POST("/:session/reset", flowHandler.Reset)
			flows.POST("/:session/step", flowHandler.GoToStep)
			flows.DELETE("/:session", flowHandler.Teardown)
			flows.GET("/:session/attempts", attemptHandler.GetBySession)
		}

		// Статусы подписок
		entitlements := v1.Group("/entitlements")
		{
			entitlements.GET("/:id", entitlementHandler.GetStatus)
			entitlements.POST("/:id/cancel", entitlementHandler.Cancel)
		}

		// Аудит попыток покупки
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", attemptHandler.GetByID)
		}
	}

	return r
}
