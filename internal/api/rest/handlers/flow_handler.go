package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/internal/flow"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
)

// CacheInvalidator интерфейс сброса кэша статусов подписок
type CacheInvalidator interface {
	Invalidate(ctx context.Context, payerID string) error
}

// FlowHandler обработчик потока покупки подписки
type FlowHandler struct {
	manager *flow.Manager
	cache   CacheInvalidator
	log     *logger.Logger
}

// NewFlowHandler создает новый обработчик потока покупки
func NewFlowHandler(manager *flow.Manager, cache CacheInvalidator, log *logger.Logger) *FlowHandler {
	return &FlowHandler{
		manager: manager,
		cache:   cache,
		log:     log,
	}
}

// errorBody преобразует ошибку потока в тело ответа
func errorBody(err error) gin.H {
	if err == nil {
		return nil
	}

	var validationErrs domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		return gin.H{"code": "validation_failed", "message": err.Error(), "fields": validationErrs.Fields()}
	}

	var intentErr *domain.IntentCreationError
	if errors.As(err, &intentErr) {
		return gin.H{"code": intentErr.Code, "message": intentErr.Message}
	}

	var gatewayErr *domain.GatewayError
	if errors.As(err, &gatewayErr) {
		return gin.H{"code": gatewayErr.Code, "message": gatewayErr.Message}
	}

	switch {
	case errors.Is(err, domain.ErrFlowBusy):
		return gin.H{"code": "flow_busy", "message": err.Error()}
	case errors.Is(err, domain.ErrInvalidOperation):
		return gin.H{"code": "invalid_operation", "message": err.Error()}
	}

	return gin.H{"code": "internal", "message": err.Error()}
}

// flowResponse собирает представление текущего состояния потока
func flowResponse(orch *flow.Orchestrator) gin.H {
	resp := gin.H{"state": orch.CurrentState()}

	if err := orch.LastError(); err != nil {
		resp["last_error"] = errorBody(err)
	}
	if result := orch.LastResult(); result != nil {
		resp["last_result"] = result
	}
	return resp
}

// GetFlow возвращает текущее состояние потока покупки
func (h *FlowHandler) GetFlow(c *gin.Context) {
	sessionID := c.Param("session")

	orch, exists := h.manager.Get(sessionID)
	if !exists {
		// Сессия без потока находится на шаге выбора плана
		c.JSON(http.StatusOK, gin.H{"state": domain.FlowStatePricing})
		return
	}

	c.JSON(http.StatusOK, flowResponse(orch))
}

// Confirm принимает подтверждение покупки
func (h *FlowHandler) Confirm(c *gin.Context) {
	sessionID := c.Param("session")

	var confirmation domain.SubscriptionConfirmation
	if err := c.ShouldBindJSON(&confirmation); err != nil {
		h.log.Warn("Invalid confirmation payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	orch, _ := h.manager.GetOrCreate(sessionID)
	if err := orch.Confirm(confirmation); err != nil {
		var validationErrs domain.ValidationErrors
		if errors.As(err, &validationErrs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errorBody(err)})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": errorBody(err)})
		return
	}

	c.JSON(http.StatusOK, flowResponse(orch))
}

// InitiatePayment запускает оплату и доводит попытку до терминального исхода
func (h *FlowHandler) InitiatePayment(c *gin.Context) {
	sessionID := c.Param("session")

	orch, exists := h.manager.Get(sessionID)
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "no_flow", "message": "no purchase flow for session"}})
		return
	}

	// Оплата выполняется в контексте сессии: закрытие сессии отменяет
	// незавершенную работу, а не завершение HTTP запроса
	_, flowCtx := h.manager.GetOrCreate(sessionID)
	result, err := orch.InitiatePayment(flowCtx)
	h.respondAttempt(c, orch, result, err)
}

// Retry повторяет неудачную попытку с тем же намерением
func (h *FlowHandler) Retry(c *gin.Context) {
	sessionID := c.Param("session")

	orch, exists := h.manager.Get(sessionID)
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "no_flow", "message": "no purchase flow for session"}})
		return
	}

	_, flowCtx := h.manager.GetOrCreate(sessionID)
	result, err := orch.Retry(flowCtx)
	h.respondAttempt(c, orch, result, err)
}

// respondAttempt отправляет результат попытки оплаты
func (h *FlowHandler) respondAttempt(c *gin.Context, orch *flow.Orchestrator, result *domain.PurchaseResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "cancelled", "message": "purchase flow was cancelled"}})
		case errors.Is(err, domain.ErrInvalidOperation), errors.Is(err, domain.ErrFlowBusy):
			c.JSON(http.StatusConflict, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		case errors.Is(err, domain.ErrIntentCreationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		case errors.Is(err, domain.ErrPaymentFailed):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		}
		return
	}

	// Подписка могла активироваться: читающая ручка не должна отдавать
	// устаревший статус из кэша
	if result != nil && h.cache != nil {
		if payerID := orch.PayerID(); payerID != "" {
			if err := h.cache.Invalidate(c.Request.Context(), payerID); err != nil {
				h.log.Warn("Failed to invalidate entitlement cache: %v", err)
			}
		}
	}

	resp := flowResponse(orch)
	if result != nil {
		resp["result"] = result
	}
	c.JSON(http.StatusOK, resp)
}

// Reset возвращает поток к выбору плана
func (h *FlowHandler) Reset(c *gin.Context) {
	sessionID := c.Param("session")

	orch, exists := h.manager.Get(sessionID)
	if !exists {
		c.JSON(http.StatusOK, gin.H{"state": domain.FlowStatePricing})
		return
	}

	state := orch.Reset()
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// stepRequest представляет запрос навигации между шагами
type stepRequest struct {
	Step domain.FlowState `json:"step" binding:"required"`
}

// GoToStep переводит поток между шагами выбора плана и подтверждения
func (h *FlowHandler) GoToStep(c *gin.Context) {
	sessionID := c.Param("session")

	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	orch, _ := h.manager.GetOrCreate(sessionID)
	if err := orch.GoToStep(req.Step); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": errorBody(err), "state": orch.CurrentState()})
		return
	}

	c.JSON(http.StatusOK, flowResponse(orch))
}

// Teardown закрывает поток сессии, отменяя незавершенную работу
func (h *FlowHandler) Teardown(c *gin.Context) {
	sessionID := c.Param("session")

	h.manager.Teardown(sessionID)
	c.Status(http.StatusNoContent)
}
