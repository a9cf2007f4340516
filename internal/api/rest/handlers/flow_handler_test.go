package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/internal/flow"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/gin-gonic/gin"
)

type stubIntents struct{}

func (stubIntents) CreateIntent(ctx context.Context, amount float64, currency, description, payerID string) (domain.PaymentIntentHandle, error) {
	return domain.PaymentIntentHandle{IntentID: "pi_1", ClientCredential: "secret_1"}, nil
}

type stubGateway struct {
	outcome domain.PaymentOutcome
}

func (s stubGateway) Confirm(ctx context.Context, handle domain.PaymentIntentHandle) (domain.PaymentOutcome, error) {
	return s.outcome, nil
}

type stubPoller struct{}

func (stubPoller) AwaitActivation(ctx context.Context, payerID string) (bool, error) {
	return true, nil
}

type stubMetrics struct{}

func (stubMetrics) IncFlowTransition(state string)             {}
func (stubMetrics) IncIntentCreated(currency string)           {}
func (stubMetrics) IncIntentFailed(reason string)              {}
func (stubMetrics) IncPurchase(currency string, status string) {}

type recordingInvalidator struct {
	payerIDs []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, payerID string) error {
	r.payerIDs = append(r.payerIDs, payerID)
	return nil
}

func newTestRouter(t *testing.T, gateway flow.GatewayAdapter, cache CacheInvalidator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.ERROR)
	manager := flow.NewManager(flow.Dependencies{
		Intents: stubIntents{},
		Gateway: gateway,
		Poller:  stubPoller{},
		Metrics: stubMetrics{},
	}, log)
	t.Cleanup(manager.Close)

	handler := NewFlowHandler(manager, cache, log)

	r := gin.New()
	flows := r.Group("/api/v1/flows")
	{
		flows.GET("/:session", handler.GetFlow)
		flows.POST("/:session/confirm", handler.Confirm)
		flows.POST("/:session/payment", handler.InitiatePayment)
		flows.POST("/:session/retry", handler.Retry)
		flows.POST("/:session/reset", handler.Reset)
		flows.POST("/:session/step", handler.GoToStep)
		flows.DELETE("/:session", handler.Teardown)
	}
	return r
}

func confirmationBody() string {
	return `{
		"plan_id": "plan_premium_monthly",
		"plan_name": "Premium",
		"price": 30,
		"currency": "USD",
		"billing_cycle": "month",
		"payer_id": "2f9b7a40-64c5-4d7b-9f3e-8a1c2d3e4f5a",
		"consent": true
	}`
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
		}
	}
	return w, parsed
}

func TestGetFlowForUnknownSession(t *testing.T) {
	r := newTestRouter(t, stubGateway{outcome: domain.PaymentOutcome{Success: true}}, nil)

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/flows/session-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body["state"] != string(domain.FlowStatePricing) {
		t.Errorf("unknown session must report the pricing step, got %v", body["state"])
	}
}

func TestConfirmAndPay(t *testing.T) {
	cache := &recordingInvalidator{}
	r := newTestRouter(t, stubGateway{outcome: domain.PaymentOutcome{Success: true, TransactionID: "tx_1"}}, cache)

	w, body := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/confirm", confirmationBody())
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected status 200, got %d: %v", w.Code, body)
	}
	if body["state"] != string(domain.FlowStateConfirming) {
		t.Errorf("expected state confirming, got %v", body["state"])
	}

	w, body = doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/payment", "")
	if w.Code != http.StatusOK {
		t.Fatalf("payment: expected status 200, got %d: %v", w.Code, body)
	}
	if body["state"] != string(domain.FlowStateSucceeded) {
		t.Errorf("expected state succeeded, got %v", body["state"])
	}

	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected purchase result in response, got %v", body)
	}
	if result["transaction_id"] != "tx_1" {
		t.Errorf("expected transaction tx_1, got %v", result["transaction_id"])
	}

	if len(cache.payerIDs) != 1 || cache.payerIDs[0] != "2f9b7a40-64c5-4d7b-9f3e-8a1c2d3e4f5a" {
		t.Errorf("successful purchase must invalidate the payer cache entry, got %v", cache.payerIDs)
	}
}

func TestConfirmRejectsInvalidPayload(t *testing.T) {
	r := newTestRouter(t, stubGateway{}, nil)

	body := strings.Replace(confirmationBody(), `"consent": true`, `"consent": false`, 1)
	w, parsed := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/confirm", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %v", w.Code, parsed)
	}
}

func TestPaymentDeclineAndRetryFlow(t *testing.T) {
	r := newTestRouter(t, stubGateway{outcome: domain.PaymentOutcome{
		Success:      false,
		ErrorCode:    "card_declined",
		ErrorMessage: "card was declined",
	}}, nil)

	if w, _ := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/confirm", confirmationBody()); w.Code != http.StatusOK {
		t.Fatalf("confirm: expected status 200, got %d", w.Code)
	}

	w, body := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/payment", "")
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status 402, got %d: %v", w.Code, body)
	}
	if body["state"] != string(domain.FlowStateFailed) {
		t.Errorf("expected state failed, got %v", body["state"])
	}

	errBody, ok := body["error"].(map[string]any)
	if !ok || errBody["code"] != "card_declined" {
		t.Errorf("expected error code card_declined, got %v", body["error"])
	}

	// Повтор с тем же исходом остается неудачей
	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/retry", "")
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("retry: expected status 402, got %d", w.Code)
	}
}

func TestPaymentWithoutFlowIsConflict(t *testing.T) {
	r := newTestRouter(t, stubGateway{}, nil)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/payment", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}

func TestTeardownFlow(t *testing.T) {
	r := newTestRouter(t, stubGateway{outcome: domain.PaymentOutcome{Success: true}}, nil)

	if w, _ := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/confirm", confirmationBody()); w.Code != http.StatusOK {
		t.Fatalf("confirm: expected status 200, got %d", w.Code)
	}

	w, _ := doRequest(t, r, http.MethodDelete, "/api/v1/flows/session-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	w, body := doRequest(t, r, http.MethodGet, "/api/v1/flows/session-1", "")
	if w.Code != http.StatusOK || body["state"] != string(domain.FlowStatePricing) {
		t.Errorf("torn down session must report the pricing step, got %d %v", w.Code, body)
	}
}

func TestGoToStepEndpoint(t *testing.T) {
	r := newTestRouter(t, stubGateway{}, nil)

	if w, _ := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/confirm", confirmationBody()); w.Code != http.StatusOK {
		t.Fatalf("confirm: expected status 200, got %d", w.Code)
	}

	w, body := doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/step", `{"step":"pricing"}`)
	if w.Code != http.StatusOK || body["state"] != string(domain.FlowStatePricing) {
		t.Fatalf("expected pricing step, got %d %v", w.Code, body)
	}

	// Шаг подтверждения недоступен после сброса подтверждения
	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/flows/session-1/step", `{"step":"confirming"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}
