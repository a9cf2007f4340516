package flow

import (
	"testing"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(Dependencies{
		Intents: &fakeIntents{handle: domain.PaymentIntentHandle{IntentID: "pi_1"}},
		Gateway: &fakeGateway{replies: []gatewayReply{
			{outcome: domain.PaymentOutcome{Success: true, TransactionID: "tx_1"}},
		}},
		Poller:   &fakePoller{activated: true},
		Attempts: &fakeRecorder{},
		Events:   &fakePublisher{},
		Metrics:  noopMetrics{},
	}, logger.New(logger.ERROR))
}

func TestManagerReturnsSameFlowPerSession(t *testing.T) {
	manager := newTestManager(t)
	defer manager.Close()

	first, _ := manager.GetOrCreate("session-1")
	second, _ := manager.GetOrCreate("session-1")
	if first != second {
		t.Error("a session must own at most one live flow")
	}

	other, _ := manager.GetOrCreate("session-2")
	if other == first {
		t.Error("different sessions must not share a flow")
	}
}

func TestManagerGet(t *testing.T) {
	manager := newTestManager(t)
	defer manager.Close()

	if _, exists := manager.Get("session-1"); exists {
		t.Error("Get must not create a flow")
	}

	created, _ := manager.GetOrCreate("session-1")
	got, exists := manager.Get("session-1")
	if !exists || got != created {
		t.Error("Get must return the created flow")
	}
}

func TestTeardownCancelsSessionContext(t *testing.T) {
	manager := newTestManager(t)
	defer manager.Close()

	orch, ctx := manager.GetOrCreate("session-1")
	if err := orch.Confirm(validConfirmation()); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}

	if !manager.Teardown("session-1") {
		t.Fatal("Teardown must report an existing flow")
	}
	if ctx.Err() == nil {
		t.Error("Teardown must cancel the session context")
	}
	if _, exists := manager.Get("session-1"); exists {
		t.Error("Teardown must remove the flow")
	}
	if state := orch.CurrentState(); state != domain.FlowStatePricing {
		t.Errorf("torn down flow must be discarded to %s, got %s", domain.FlowStatePricing, state)
	}

	if manager.Teardown("session-1") {
		t.Error("repeated Teardown must report no flow")
	}
}

func TestCloseCancelsAllSessions(t *testing.T) {
	manager := newTestManager(t)

	_, ctx1 := manager.GetOrCreate("session-1")
	_, ctx2 := manager.GetOrCreate("session-2")

	manager.Close()

	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("Close must cancel every session context")
	}
	if _, exists := manager.Get("session-1"); exists {
		t.Error("Close must remove all flows")
	}
}
