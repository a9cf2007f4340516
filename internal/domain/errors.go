package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInvalidOperation операция недопустима в текущем состоянии потока
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")

	// ErrExternalServiceUnavailable внешний сервис недоступен
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrPaymentFailed платеж не прошел
	ErrPaymentFailed = errors.New("payment failed")

	// ErrIntentCreationFailed не удалось создать платежное намерение
	ErrIntentCreationFailed = errors.New("payment intent creation failed")

	// ErrEntitlementNotFound запись о подписке не найдена
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrFlowBusy попытка покупки уже выполняется
	ErrFlowBusy = errors.New("purchase attempt already in progress")

	// ErrUnsupportedCurrency неподдерживаемая валюта
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is проверяет, является ли ошибка ошибкой неверных входных данных
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields возвращает список полей с ошибками
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// IntentCreationError представляет ошибку создания платежного намерения.
// Восстановимая ошибка: пользователь может повторить подтверждение,
// при этом будет создано новое намерение.
type IntentCreationError struct {
	Code        string
	Message     string
	StatusCode  int
	OriginalErr error
}

// Error реализует интерфейс error
func (e *IntentCreationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("intent creation error [%s]: %s: %v", e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("intent creation error [%s]: %s", e.Code, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *IntentCreationError) Unwrap() error {
	return e.OriginalErr
}

// Is проверяет, является ли ошибка ошибкой создания намерения
func (e *IntentCreationError) Is(target error) bool {
	return target == ErrIntentCreationFailed
}

// NewIntentCreationError создает новую ошибку создания платежного намерения
func NewIntentCreationError(code, message string, statusCode int, err error) *IntentCreationError {
	return &IntentCreationError{
		Code:        code,
		Message:     message,
		StatusCode:  statusCode,
		OriginalErr: err,
	}
}

// GatewayError представляет терминальную ошибку платежного шлюза.
// Терминальна для попытки, но не для сессии: пользователь может
// повторить попытку с тем же намерением или начать заново.
type GatewayError struct {
	Code        string
	Message     string
	IntentID    string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *GatewayError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("gateway error [%s]: %s: %v (intent_id: %s)", e.Code, e.Message, e.OriginalErr, e.IntentID)
	}
	return fmt.Sprintf("gateway error [%s]: %s (intent_id: %s)", e.Code, e.Message, e.IntentID)
}

// Unwrap возвращает оригинальную ошибку
func (e *GatewayError) Unwrap() error {
	return e.OriginalErr
}

// Is проверяет, является ли ошибка ошибкой платежа
func (e *GatewayError) Is(target error) bool {
	return target == ErrPaymentFailed
}

// NewGatewayError создает новую ошибку платежного шлюза
func NewGatewayError(code, message, intentID string, err error) *GatewayError {
	return &GatewayError{
		Code:        code,
		Message:     message,
		IntentID:    intentID,
		OriginalErr: err,
	}
}

// ExternalServiceError представляет ошибку внешнего сервиса.
// При опросе статуса подписки такие ошибки считаются временными
// и не прерывают цикл опроса.
type ExternalServiceError struct {
	Service     string
	Code        string
	Message     string
	StatusCode  int
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ExternalServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s service error [%s]: %s: %v", e.Service, e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s service error [%s]: %s", e.Service, e.Code, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *ExternalServiceError) Unwrap() error {
	return e.OriginalErr
}

// Is проверяет, является ли ошибка ошибкой недоступности внешнего сервиса
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalServiceUnavailable
}

// NewExternalServiceError создает новую ошибку внешнего сервиса
func NewExternalServiceError(service, code, message string, statusCode int, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:     service,
		Code:        code,
		Message:     message,
		StatusCode:  statusCode,
		OriginalErr: err,
	}
}
