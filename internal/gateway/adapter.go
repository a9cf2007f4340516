package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

// Статусы подтверждения на стороне шлюза
const (
	gatewayStatusSucceeded      = "succeeded"
	gatewayStatusFailed         = "failed"
	gatewayStatusRequiresAction = "requires_action"
)

// RequiresActionFunc вызывается, когда шлюз требует дополнительного действия
// пользователя (step-up проверка). Состояние потока при этом не меняется:
// адаптер продолжает ждать терминального исхода.
type RequiresActionFunc func(intentID string)

// Config конфигурация адаптера платежного шлюза
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Интервал повторного опроса после requires_action. Шаг-ап проверка
	// не ограничена по времени на нашей стороне - ею владеет шлюз.
	ActionPollInterval time.Duration
}

// HTTPAdapter представляет границу между оркестратором и внешним платежным
// шлюзом. Для оркестратора это непрозрачная операция: по одному намерению
// возвращается ровно один терминальный исход.
type HTTPAdapter struct {
	baseURL            string
	httpClient         *http.Client
	actionPollInterval time.Duration
	onRequiresAction   RequiresActionFunc
	log                *logger.Logger
}

// NewHTTPAdapter создает новый адаптер платежного шлюза
func NewHTTPAdapter(cfg Config, onRequiresAction RequiresActionFunc, log *logger.Logger) *HTTPAdapter {
	pollInterval := cfg.ActionPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &HTTPAdapter{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		actionPollInterval: pollInterval,
		onRequiresAction:   onRequiresAction,
		log:                log,
	}
}

// confirmRequest представляет запрос подтверждения к шлюзу
type confirmRequest struct {
	ClientCredential string `json:"client_credential"`
}

// confirmResponse представляет ответ шлюза на подтверждение
type confirmResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Confirm передает управление шлюзу и возвращает терминальный исход.
// Ответ requires_action не терминален: он поднимается наверх через
// колбэк, после чего подтверждение опрашивается снова. Отказ по карте -
// не ошибка вызова, а исход с Success=false; ошибкой возвращаются только
// отмена контекста и недоступность самого шлюза.
func (a *HTTPAdapter) Confirm(ctx context.Context, handle domain.PaymentIntentHandle) (domain.PaymentOutcome, error) {
	a.log.Debug("Confirming payment intent with gateway: %s", handle.IntentID)

	for {
		resp, err := a.confirmOnce(ctx, handle)
		if err != nil {
			return domain.PaymentOutcome{}, err
		}

		switch resp.Status {
		case gatewayStatusSucceeded:
			a.log.Info("Gateway confirmed payment intent %s, transaction: %s",
				handle.IntentID, resp.TransactionID)
			return domain.PaymentOutcome{
				Success:       true,
				TransactionID: resp.TransactionID,
			}, nil

		case gatewayStatusFailed:
			a.log.Warn("Gateway reported failure for intent %s: [%s] %s",
				handle.IntentID, resp.ErrorCode, resp.ErrorMessage)
			return domain.PaymentOutcome{
				Success:      false,
				ErrorCode:    resp.ErrorCode,
				ErrorMessage: resp.ErrorMessage,
			}, nil

		case gatewayStatusRequiresAction:
			a.log.Info("Gateway requires additional user action for intent: %s", handle.IntentID)
			if a.onRequiresAction != nil {
				a.onRequiresAction(handle.IntentID)
			}

			select {
			case <-ctx.Done():
				return domain.PaymentOutcome{}, ctx.Err()
			case <-time.After(a.actionPollInterval):
			}

		default:
			return domain.PaymentOutcome{}, domain.NewGatewayError(
				"bad_response",
				fmt.Sprintf("unknown gateway status %q", resp.Status),
				handle.IntentID, nil)
		}
	}
}

// confirmOnce выполняет один запрос подтверждения к шлюзу
func (a *HTTPAdapter) confirmOnce(ctx context.Context, handle domain.PaymentIntentHandle) (*confirmResponse, error) {
	body, err := json.Marshal(confirmRequest{ClientCredential: handle.ClientCredential})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.baseURL+"/v1/payment-intents/confirm",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewGatewayError(
			"gateway_unreachable", "payment gateway unreachable", handle.IntentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewGatewayError(
			"gateway_unavailable",
			fmt.Sprintf("unexpected response status %d", resp.StatusCode),
			handle.IntentID, nil)
	}

	var confirmResp confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirmResp); err != nil {
		return nil, domain.NewGatewayError(
			"bad_response", "failed to decode gateway response", handle.IntentID, err)
	}

	return &confirmResp, nil
}
