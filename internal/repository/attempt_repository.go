package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/google/uuid"
)

// AttemptRepository интерфейс репозитория попыток покупки
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.PurchaseAttempt) error
	Update(ctx context.Context, attempt *domain.PurchaseAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.PurchaseAttempt, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]domain.PurchaseAttempt, error)
}

// InMemoryAttemptRepository хранит попытки покупки в памяти.
// Используется в тестах и локальной разработке.
type InMemoryAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]domain.PurchaseAttempt
	log      *logger.Logger
}

// NewInMemoryAttemptRepository создает новый репозиторий попыток в памяти
func NewInMemoryAttemptRepository(log *logger.Logger) *InMemoryAttemptRepository {
	return &InMemoryAttemptRepository{
		attempts: make(map[uuid.UUID]domain.PurchaseAttempt),
		log:      log,
	}
}

// Create сохраняет новую попытку покупки
func (r *InMemoryAttemptRepository) Create(ctx context.Context, attempt *domain.PurchaseAttempt) error {
	if attempt.ID == uuid.Nil {
		return ErrInvalidData
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attempts[attempt.ID]; exists {
		return ErrDuplicate
	}

	now := time.Now()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	r.attempts[attempt.ID] = *attempt
	r.log.Debug("Stored purchase attempt: %s", attempt.ID)
	return nil
}

// Update обновляет существующую попытку покупки
func (r *InMemoryAttemptRepository) Update(ctx context.Context, attempt *domain.PurchaseAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attempts[attempt.ID]; !exists {
		return ErrNotFound
	}

	attempt.UpdatedAt = time.Now()
	r.attempts[attempt.ID] = *attempt
	r.log.Debug("Updated purchase attempt: %s, status: %s", attempt.ID, attempt.Status)
	return nil
}

// GetByID возвращает попытку покупки по ID
func (r *InMemoryAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PurchaseAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attempt, exists := r.attempts[id]
	if !exists {
		return domain.PurchaseAttempt{}, ErrNotFound
	}
	return attempt, nil
}

// GetBySessionID возвращает попытки покупки для сессии в порядке создания
func (r *InMemoryAttemptRepository) GetBySessionID(ctx context.Context, sessionID string) ([]domain.PurchaseAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.PurchaseAttempt
	for _, attempt := range r.attempts {
		if attempt.SessionID == sessionID {
			result = append(result, attempt)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
