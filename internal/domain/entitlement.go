package domain

import (
	"time"
)

// EntitlementState статус подписки на стороне бэкенда
type EntitlementState string

const (
	EntitlementStateActive    EntitlementState = "active"
	EntitlementStateInactive  EntitlementState = "inactive"
	EntitlementStateExpired   EntitlementState = "expired"
	EntitlementStateCancelled EntitlementState = "cancelled"
)

// EntitlementStatus представляет собой долговременную запись о подписке.
// Запись изменяется только фоновым обработчиком событий оплаты на бэкенде;
// клиентские компоненты читают ее, но никогда не пишут.
type EntitlementStatus struct {
	EntitlementID string           `json:"entitlement_id,omitempty"`
	Status        EntitlementState `json:"status"`
	IsPremium     bool             `json:"is_premium"`
	StartAt       *time.Time       `json:"start_at,omitempty"`
	EndAt         *time.Time       `json:"end_at,omitempty"`
}

// DaysRemaining возвращает количество полных дней до окончания подписки
func (s EntitlementStatus) DaysRemaining() int {
	if s.EndAt == nil {
		return 0
	}

	remaining := time.Until(*s.EndAt)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours() / 24)
}

// InactiveEntitlement возвращает корректно заполненный статус для плательщика
// без записи о подписке. Отсутствие подписки - нормальное состояние, не ошибка.
func InactiveEntitlement() EntitlementStatus {
	return EntitlementStatus{
		Status:    EntitlementStateInactive,
		IsPremium: false,
	}
}
