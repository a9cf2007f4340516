package handlers

import (
	"errors"
	"net/http"

	"github.com/dltrh/devision-job-platform/internal/repository"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttemptHandler обработчик запросов аудита попыток покупки
type AttemptHandler struct {
	attempts repository.AttemptRepository
	log      *logger.Logger
}

// NewAttemptHandler создает новый обработчик аудита попыток
func NewAttemptHandler(attempts repository.AttemptRepository, log *logger.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log,
	}
}

// GetBySession возвращает попытки покупки сессии
func (h *AttemptHandler) GetBySession(c *gin.Context) {
	sessionID := c.Param("session")

	attempts, err := h.attempts.GetBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("Failed to list purchase attempts for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "message": err.Error()}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// GetByID возвращает попытку покупки по идентификатору
func (h *AttemptHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": "invalid attempt id"}})
		return
	}

	attempt, err := h.attempts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "purchase attempt not found"}})
			return
		}
		h.log.Error("Failed to get purchase attempt %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "message": err.Error()}})
		return
	}

	c.JSON(http.StatusOK, attempt)
}
