package domain

// FlowState состояние потока покупки подписки
type FlowState string

const (
	FlowStatePricing         FlowState = "pricing"
	FlowStateConfirming      FlowState = "confirming"
	FlowStateAwaitingGateway FlowState = "awaiting_gateway"
	FlowStateReconciling     FlowState = "reconciling"
	FlowStateSucceeded       FlowState = "succeeded"
	FlowStateFailed          FlowState = "failed"
)

// IsTerminal проверяет, является ли состояние терминальным для попытки
func (s FlowState) IsTerminal() bool {
	return s == FlowStateSucceeded || s == FlowStateFailed
}

// PaymentIntentHandle представляет одно намерение оплатить конкретную сумму.
// Идентификатор и учетные данные непрозрачны для клиента; шлюз гарантирует
// не более одного успешного подтверждения на одно намерение.
type PaymentIntentHandle struct {
	IntentID         string `json:"intent_id"`
	ClientCredential string `json:"client_credential"`
}

// PaymentOutcome терминальный результат взаимодействия со шлюзом.
// Создается ровно один раз на попытку.
type PaymentOutcome struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// PurchaseResult итоговый результат успешной покупки.
// ActivationPending означает, что оплата подтверждена шлюзом, но подписка
// еще не активирована фоновым обработчиком событий. Это не ошибка:
// успешная оплата никогда не понижается до неудачи из-за отставания бэкенда.
type PurchaseResult struct {
	TransactionID     string `json:"transaction_id"`
	ActivationPending bool   `json:"activation_pending"`
}
