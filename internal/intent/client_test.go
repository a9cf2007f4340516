package intent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

const testPayerID = "2f9b7a40-64c5-4d7b-9f3e-8a1c2d3e4f5a"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, logger.New(logger.ERROR)), server
}

func TestCreateIntentSuccess(t *testing.T) {
	var gotBody createIntentRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/payment-intents" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"intent_id":         "pi_1",
			"client_credential": "secret_1",
		})
	})

	handle, err := client.CreateIntent(context.Background(), 30, "USD", "Subscription: Premium (monthly)", testPayerID)
	if err != nil {
		t.Fatalf("CreateIntent returned error: %v", err)
	}
	if handle.IntentID != "pi_1" || handle.ClientCredential != "secret_1" {
		t.Errorf("unexpected handle: %+v", handle)
	}
	if gotBody.Amount != 3000 {
		t.Errorf("amount must be sent in minor units, got %d", gotBody.Amount)
	}
	if gotBody.PayerID != testPayerID || gotBody.Currency != "USD" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestCreateIntentRejectsInvalidInputLocally(t *testing.T) {
	requested := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requested = true
	})

	cases := []struct {
		name     string
		amount   float64
		currency string
		payerID  string
	}{
		{"zero amount", 0, "USD", testPayerID},
		{"negative amount", -5, "USD", testPayerID},
		{"sub-cent precision", 9.999, "USD", testPayerID},
		{"bad currency", 10, "DOLLARS", testPayerID},
		{"bad payer id", 10, "USD", "not-a-uuid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.CreateIntent(context.Background(), tc.amount, tc.currency, "", tc.payerID)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if requested {
		t.Error("invalid input must be rejected without calling the service")
	}
}

func TestCreateIntentServiceRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "currency_not_supported",
				"message": "currency is not supported",
			},
		})
	})

	_, err := client.CreateIntent(context.Background(), 30, "XXX", "", testPayerID)

	var intentErr *domain.IntentCreationError
	if !errors.As(err, &intentErr) {
		t.Fatalf("expected IntentCreationError, got %v", err)
	}
	if intentErr.Code != "currency_not_supported" {
		t.Errorf("expected server-provided code, got %s", intentErr.Code)
	}
	if !errors.Is(err, domain.ErrIntentCreationFailed) {
		t.Error("error must match ErrIntentCreationFailed")
	}
}

func TestCreateIntentUnreachableService(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.CreateIntent(context.Background(), 30, "USD", "", testPayerID)

	var intentErr *domain.IntentCreationError
	if !errors.As(err, &intentErr) {
		t.Fatalf("expected IntentCreationError, got %v", err)
	}
	if intentErr.Code != "unreachable" {
		t.Errorf("expected code unreachable, got %s", intentErr.Code)
	}
}

func TestCreateIntentIncompleteResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"intent_id": "pi_1"})
	})

	_, err := client.CreateIntent(context.Background(), 30, "USD", "", testPayerID)

	var intentErr *domain.IntentCreationError
	if !errors.As(err, &intentErr) {
		t.Fatalf("expected IntentCreationError, got %v", err)
	}
	if intentErr.Code != "bad_response" {
		t.Errorf("expected code bad_response, got %s", intentErr.Code)
	}
}
