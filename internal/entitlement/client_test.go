package entitlement

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

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, logger.New(logger.ERROR)), server
}

func TestGetStatusActiveEntitlement(t *testing.T) {
	endAt := time.Now().Add(73 * time.Hour).UTC()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/entitlements/payer-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"entitlement_id": "ent_1",
			"status":         "active",
			"is_premium":     true,
			"end_at":         endAt,
		})
	})

	status, err := client.GetStatus(context.Background(), "payer-1")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if !status.IsPremium || status.Status != domain.EntitlementStateActive {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.DaysRemaining() != 3 {
		t.Errorf("expected 3 days remaining, got %d", status.DaysRemaining())
	}
}

func TestGetStatusMissingRecordIsInactive(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	status, err := client.GetStatus(context.Background(), "payer-1")
	if err != nil {
		t.Fatalf("missing entitlement record must not be an error, got %v", err)
	}
	if status.IsPremium || status.Status != domain.EntitlementStateInactive {
		t.Errorf("expected inactive status, got %+v", status)
	}
}

func TestGetStatusUnavailableServiceIsDistinctFromInactive(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.GetStatus(context.Background(), "payer-1")

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if !errors.Is(err, domain.ErrExternalServiceUnavailable) {
		t.Error("error must match ErrExternalServiceUnavailable")
	}
}

func TestGetStatusServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetStatus(context.Background(), "payer-1")

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if svcErr.Code != "bad_status" || svcErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected error details: %+v", svcErr)
	}
}

func TestCancelEntitlement(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/entitlements/ent_1/cancel" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.Cancel(context.Background(), "ent_1"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
}

func TestCancelUnknownEntitlement(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.Cancel(context.Background(), "ent_missing")
	if !errors.Is(err, domain.ErrEntitlementNotFound) {
		t.Errorf("expected ErrEntitlementNotFound, got %v", err)
	}
}
