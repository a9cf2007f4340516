package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus статус попытки покупки
type AttemptStatus string

const (
	AttemptStatusInitiated AttemptStatus = "initiated"
	AttemptStatusSucceeded AttemptStatus = "succeeded"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// PurchaseAttempt представляет собой запись аудита одной попытки покупки:
// от создания платежного намерения до терминального исхода.
type PurchaseAttempt struct {
	ID                uuid.UUID     `json:"id"`
	SessionID         string        `json:"session_id"`
	PayerID           string        `json:"payer_id"`
	PlanID            string        `json:"plan_id"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	IntentID          string        `json:"intent_id"`
	Status            AttemptStatus `json:"status"`
	TransactionID     string        `json:"transaction_id,omitempty"`
	ErrorCode         string        `json:"error_code,omitempty"`
	ActivationPending bool          `json:"activation_pending"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
