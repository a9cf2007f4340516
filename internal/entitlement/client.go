package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

const serviceName = "entitlement"

// Client представляет клиент для работы с сервисом подписок
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient создает новый клиент сервиса подписок
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// statusResponse представляет ответ сервиса подписок
type statusResponse struct {
	EntitlementID string     `json:"entitlement_id"`
	Status        string     `json:"status"`
	IsPremium     bool       `json:"is_premium"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GetStatus возвращает текущий статус подписки плательщика.
// Отсутствие записи о подписке (404) - нормальное состояние: возвращается
// корректно заполненный неактивный статус. Недоступность сервиса - отдельная
// ошибка, которую вызывающие стороны не должны путать с неактивной подпиской.
func (c *Client) GetStatus(ctx context.Context, payerID string) (domain.EntitlementStatus, error) {
	c.log.Debug("Getting entitlement status for payer: %s", payerID)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/api/v1/entitlements/"+payerID,
		nil,
	)
	if err != nil {
		return domain.EntitlementStatus{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.EntitlementStatus{}, domain.NewExternalServiceError(
			serviceName, "unreachable", "failed to query entitlement status", 0, err)
	}
	defer resp.Body.Close()

	// Нет записи о подписке - плательщик без премиума
	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("No entitlement record for payer: %s", payerID)
		return domain.InactiveEntitlement(), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.EntitlementStatus{}, domain.NewExternalServiceError(
			serviceName, "bad_status",
			fmt.Sprintf("unexpected response status %d", resp.StatusCode),
			resp.StatusCode, nil)
	}

	var statusResp statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return domain.EntitlementStatus{}, domain.NewExternalServiceError(
			serviceName, "bad_response", "failed to decode response", resp.StatusCode, err)
	}

	if statusResp.Error != nil {
		return domain.EntitlementStatus{}, domain.NewExternalServiceError(
			serviceName, statusResp.Error.Code, statusResp.Error.Message, resp.StatusCode, nil)
	}

	status := domain.EntitlementStatus{
		EntitlementID: statusResp.EntitlementID,
		Status:        domain.EntitlementState(statusResp.Status),
		IsPremium:     statusResp.IsPremium,
		StartAt:       statusResp.StartAt,
		EndAt:         statusResp.EndAt,
	}

	c.log.Debug("Entitlement status for payer %s: %s, premium: %v",
		payerID, status.Status, status.IsPremium)
	return status, nil
}

// Cancel запрашивает отмену подписки.
// Это операция жизненного цикла подписки, а не потока покупки: возвраты и
// аннулирование платежей остаются на стороне шлюза и бэкенда.
func (c *Client) Cancel(ctx context.Context, entitlementID string) error {
	c.log.Debug("Cancelling entitlement: %s", entitlementID)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/v1/entitlements/"+entitlementID+"/cancel",
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalServiceError(
			serviceName, "unreachable", "failed to cancel entitlement", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrEntitlementNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewExternalServiceError(
			serviceName, "bad_status",
			fmt.Sprintf("unexpected response status %d", resp.StatusCode),
			resp.StatusCode, nil)
	}

	c.log.Info("Cancelled entitlement: %s", entitlementID)
	return nil
}
