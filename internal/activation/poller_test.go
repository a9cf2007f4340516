package activation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

type scriptedStatuses struct {
	replies []statusReply
	calls   int
}

type statusReply struct {
	status domain.EntitlementStatus
	err    error
}

func (s *scriptedStatuses) GetStatus(ctx context.Context, payerID string) (domain.EntitlementStatus, error) {
	reply := s.replies[s.calls]
	s.calls++
	return reply.status, reply.err
}

type observedPoll struct {
	attempts  int
	activated bool
	observed  bool
}

func (o *observedPoll) ObservePollAttempts(attempts int, activated bool) {
	o.attempts = attempts
	o.activated = activated
	o.observed = true
}

func newTestPoller(t *testing.T, statuses StatusReader, maxAttempts int, metrics Metrics) *Poller {
	t.Helper()
	return NewPoller(statuses, Policy{
		MaxAttempts: maxAttempts,
		Interval:    time.Millisecond,
	}, metrics, logger.New(logger.ERROR))
}

func premium() domain.EntitlementStatus {
	return domain.EntitlementStatus{
		EntitlementID: "ent_1",
		Status:        domain.EntitlementStateActive,
		IsPremium:     true,
	}
}

func TestAwaitActivationStopsAtFirstPremium(t *testing.T) {
	statuses := &scriptedStatuses{replies: []statusReply{
		{status: domain.InactiveEntitlement()},
		{status: domain.InactiveEntitlement()},
		{status: premium()},
		{status: premium()},
	}}
	metrics := &observedPoll{}
	poller := newTestPoller(t, statuses, 10, metrics)

	activated, err := poller.AwaitActivation(context.Background(), "payer-1")
	if err != nil {
		t.Fatalf("AwaitActivation returned error: %v", err)
	}
	if !activated {
		t.Error("expected activation")
	}
	if statuses.calls != 3 {
		t.Errorf("expected exactly 3 status queries, got %d", statuses.calls)
	}
	if !metrics.observed || metrics.attempts != 3 || !metrics.activated {
		t.Errorf("expected observed attempts=3 activated=true, got %+v", metrics)
	}
}

func TestAwaitActivationExhaustsBudget(t *testing.T) {
	var replies []statusReply
	for i := 0; i < 5; i++ {
		replies = append(replies, statusReply{status: domain.InactiveEntitlement()})
	}
	statuses := &scriptedStatuses{replies: replies}
	metrics := &observedPoll{}
	poller := newTestPoller(t, statuses, 5, metrics)

	activated, err := poller.AwaitActivation(context.Background(), "payer-1")
	if err != nil {
		t.Fatalf("AwaitActivation returned error: %v", err)
	}
	if activated {
		t.Error("expected no activation")
	}
	if statuses.calls != 5 {
		t.Errorf("budget of 5 attempts must issue exactly 5 queries, got %d", statuses.calls)
	}
	if !metrics.observed || metrics.attempts != 5 || metrics.activated {
		t.Errorf("expected observed attempts=5 activated=false, got %+v", metrics)
	}
}

func TestAwaitActivationSwallowsTransientErrors(t *testing.T) {
	statuses := &scriptedStatuses{replies: []statusReply{
		{err: errors.New("connection refused")},
		{err: domain.NewExternalServiceError("entitlement", "bad_status", "503", 503, nil)},
		{status: premium()},
	}}
	poller := newTestPoller(t, statuses, 10, nil)

	activated, err := poller.AwaitActivation(context.Background(), "payer-1")
	if err != nil {
		t.Fatalf("transient failures must not abort the poll, got %v", err)
	}
	if !activated {
		t.Error("expected activation after transient failures")
	}
	if statuses.calls != 3 {
		t.Errorf("expected 3 status queries, got %d", statuses.calls)
	}
}

func TestAwaitActivationHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	statuses := &scriptedStatuses{replies: []statusReply{{status: premium()}}}
	poller := newTestPoller(t, statuses, 10, nil)

	_, err := poller.AwaitActivation(ctx, "payer-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if statuses.calls != 0 {
		t.Errorf("cancelled poll must not issue new queries, got %d", statuses.calls)
	}
}

func TestNewPollerFallsBackToDefaultPolicy(t *testing.T) {
	poller := NewPoller(&scriptedStatuses{}, Policy{}, nil, logger.New(logger.ERROR))
	if poller.policy.MaxAttempts != 10 || poller.policy.Interval != 2*time.Second {
		t.Errorf("expected default policy, got %+v", poller.policy)
	}
}
