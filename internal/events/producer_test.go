package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/google/uuid"
)

func newMockProducer(t *testing.T) (*mocks.SyncProducer, PurchaseProducer) {
	t.Helper()
	mock := mocks.NewSyncProducer(t, NewSaramaConfig(NewConfig([]string{"localhost:9092"})))
	return mock, NewKafkaPurchaseProducer(mock, logger.New(logger.ERROR))
}

func testAttempt() domain.PurchaseAttempt {
	return domain.PurchaseAttempt{
		ID:            uuid.New(),
		SessionID:     "session-1",
		PayerID:       "2f9b7a40-64c5-4d7b-9f3e-8a1c2d3e4f5a",
		PlanID:        "plan_premium_monthly",
		Amount:        30,
		Currency:      "USD",
		IntentID:      "pi_1",
		Status:        domain.AttemptStatusSucceeded,
		TransactionID: "tx_1",
	}
}

func TestPublishPurchaseSucceeded(t *testing.T) {
	mock, producer := newMockProducer(t)
	attempt := testAttempt()

	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var event PurchaseEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.AttemptID != attempt.ID.String() {
			return errors.New("event must carry the attempt id")
		}
		if event.TransactionID != "tx_1" || event.Status != domain.AttemptStatusSucceeded {
			return errors.New("event must carry the purchase outcome")
		}
		return nil
	})

	if err := producer.PublishPurchaseSucceeded(context.Background(), attempt); err != nil {
		t.Fatalf("PublishPurchaseSucceeded returned error: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestPublishPurchaseFailed(t *testing.T) {
	mock, producer := newMockProducer(t)

	attempt := testAttempt()
	attempt.Status = domain.AttemptStatusFailed
	attempt.TransactionID = ""
	attempt.ErrorCode = "card_declined"

	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var event PurchaseEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.ErrorCode != "card_declined" || event.Status != domain.AttemptStatusFailed {
			return errors.New("event must carry the failure details")
		}
		return nil
	})

	if err := producer.PublishPurchaseFailed(context.Background(), attempt); err != nil {
		t.Fatalf("PublishPurchaseFailed returned error: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestPublishSurfacesBrokerError(t *testing.T) {
	mock, producer := newMockProducer(t)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	if err := producer.PublishPurchaseSucceeded(context.Background(), testAttempt()); err == nil {
		t.Fatal("expected broker error to be surfaced")
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
