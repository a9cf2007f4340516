package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/google/uuid"
)

// Client представляет клиент сервиса платежных намерений.
// Сервис сам ходит во внешний шлюз; клиент отвечает только за один запрос
// на создание намерения и локальную валидацию входных данных.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient создает новый клиент сервиса платежных намерений
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// createIntentRequest представляет запрос на создание платежного намерения
type createIntentRequest struct {
	PayerID     string `json:"payer_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// createIntentResponse представляет ответ сервиса платежных намерений
type createIntentResponse struct {
	IntentID         string `json:"intent_id"`
	ClientCredential string `json:"client_credential"`
	Error            *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreateIntent создает платежное намерение на заданную сумму.
// Некорректный вход отклоняется локально, без запроса к сервису.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, description, payerID string) (domain.PaymentIntentHandle, error) {
	c.log.Debug("Creating payment intent for payer: %s, amount: %.2f %s", payerID, amount, currency)

	var errs domain.ValidationErrors

	if _, err := uuid.Parse(payerID); err != nil {
		errs.Add("payer_id", "must be a well-formed identifier")
	}
	if len(currency) != 3 {
		errs.Add("currency", "must be a 3-letter currency code")
	}
	if amount <= 0 {
		errs.Add("amount", "must be greater than zero")
	}

	// Сумма передается в наименьших единицах валюты. Дробные доли цента
	// отклоняются: молчаливое усечение недопустимо для платежей.
	minorUnits := math.Round(amount * 100)
	if math.Abs(amount*100-minorUnits) > 1e-9 {
		errs.Add("amount", "must not carry sub-cent precision")
	}

	if errs.HasErrors() {
		c.log.Warn("Rejected payment intent input: %v", errs)
		return domain.PaymentIntentHandle{}, errs
	}

	body, err := json.Marshal(createIntentRequest{
		PayerID:     payerID,
		Amount:      int64(minorUnits),
		Currency:    currency,
		Description: description,
	})
	if err != nil {
		return domain.PaymentIntentHandle{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/v1/payment-intents",
		bytes.NewReader(body),
	)
	if err != nil {
		return domain.PaymentIntentHandle{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PaymentIntentHandle{}, domain.NewIntentCreationError(
			"unreachable", "payment intent service unreachable", 0, err)
	}
	defer resp.Body.Close()

	var intentResp createIntentResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&intentResp); decodeErr != nil {
		return domain.PaymentIntentHandle{}, domain.NewIntentCreationError(
			"bad_response", "failed to decode response", resp.StatusCode, decodeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := "rejected"
		message := fmt.Sprintf("unexpected response status %d", resp.StatusCode)
		if intentResp.Error != nil {
			code = intentResp.Error.Code
			message = intentResp.Error.Message
		}
		c.log.Warn("Payment intent service rejected request: [%s] %s", code, message)
		return domain.PaymentIntentHandle{}, domain.NewIntentCreationError(code, message, resp.StatusCode, nil)
	}

	if intentResp.IntentID == "" || intentResp.ClientCredential == "" {
		return domain.PaymentIntentHandle{}, domain.NewIntentCreationError(
			"bad_response", "response is missing intent identifier or credential", resp.StatusCode, nil)
	}

	c.log.Info("Created payment intent with ID: %s", intentResp.IntentID)
	return domain.PaymentIntentHandle{
		IntentID:         intentResp.IntentID,
		ClientCredential: intentResp.ClientCredential,
	}, nil
}
