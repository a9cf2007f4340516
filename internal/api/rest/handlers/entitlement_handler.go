package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/internal/entitlement"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
)

// EntitlementCanceller интерфейс отмены подписки
type EntitlementCanceller interface {
	Cancel(ctx context.Context, entitlementID string) error
}

// EntitlementHandler обработчик запросов статуса подписки
type EntitlementHandler struct {
	statuses  entitlement.StatusReader
	canceller EntitlementCanceller
	log       *logger.Logger
}

// NewEntitlementHandler создает новый обработчик подписок
func NewEntitlementHandler(statuses entitlement.StatusReader, canceller EntitlementCanceller, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		statuses:  statuses,
		canceller: canceller,
		log:       log,
	}
}

// GetStatus возвращает статус подписки плательщика.
// Отсутствие подписки - обычный ответ со статусом inactive,
// недоступность сервиса подписок - ошибка шлюза.
func (h *EntitlementHandler) GetStatus(c *gin.Context) {
	payerID := c.Param("id")

	status, err := h.statuses.GetStatus(c.Request.Context(), payerID)
	if err != nil {
		var svcErr *domain.ExternalServiceError
		if errors.As(err, &svcErr) {
			h.log.Error("Entitlement service unavailable for payer %s: %v", payerID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"code": "entitlement_unavailable", "message": "entitlement service is unavailable"}})
			return
		}
		h.log.Error("Failed to get entitlement status for payer %s: %v", payerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "message": err.Error()}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entitlement_id": status.EntitlementID,
		"status":         status.Status,
		"is_premium":     status.IsPremium,
		"start_at":       status.StartAt,
		"end_at":         status.EndAt,
		"days_remaining": status.DaysRemaining(),
	})
}

// Cancel отменяет подписку по идентификатору
func (h *EntitlementHandler) Cancel(c *gin.Context) {
	entitlementID := c.Param("id")

	if err := h.canceller.Cancel(c.Request.Context(), entitlementID); err != nil {
		switch {
		case errors.Is(err, domain.ErrEntitlementNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "entitlement not found"}})
		default:
			h.log.Error("Failed to cancel entitlement %s: %v", entitlementID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"code": "entitlement_unavailable", "message": "entitlement service is unavailable"}})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
