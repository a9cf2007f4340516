package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

const (
	TopicPurchaseSucceeded = "purchase.succeeded"
	TopicPurchaseFailed    = "purchase.failed"
)

// PurchaseEvent представляет событие попытки покупки для Kafka
type PurchaseEvent struct {
	AttemptID         string               `json:"attempt_id"`
	SessionID         string               `json:"session_id"`
	PayerID           string               `json:"payer_id"`
	PlanID            string               `json:"plan_id"`
	Amount            float64              `json:"amount"`
	Currency          string               `json:"currency"`
	Status            domain.AttemptStatus `json:"status"`
	TransactionID     string               `json:"transaction_id,omitempty"`
	ErrorCode         string               `json:"error_code,omitempty"`
	ActivationPending bool                 `json:"activation_pending"`
	Timestamp         time.Time            `json:"timestamp"`
}

// PurchaseProducer интерфейс для отправки событий покупок
type PurchaseProducer interface {
	PublishPurchaseSucceeded(ctx context.Context, attempt domain.PurchaseAttempt) error
	PublishPurchaseFailed(ctx context.Context, attempt domain.PurchaseAttempt) error
	Close() error
}

type kafkaPurchaseProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaPurchaseProducer создает новый продюсер событий покупок
func NewKafkaPurchaseProducer(producer sarama.SyncProducer, log *logger.Logger) PurchaseProducer {
	return &kafkaPurchaseProducer{
		producer: producer,
		log:      log,
	}
}

// PublishPurchaseSucceeded публикует событие об успешной покупке
func (p *kafkaPurchaseProducer) PublishPurchaseSucceeded(ctx context.Context, attempt domain.PurchaseAttempt) error {
	return p.publishEvent(ctx, TopicPurchaseSucceeded, attempt)
}

// PublishPurchaseFailed публикует событие о неудачной покупке
func (p *kafkaPurchaseProducer) PublishPurchaseFailed(ctx context.Context, attempt domain.PurchaseAttempt) error {
	return p.publishEvent(ctx, TopicPurchaseFailed, attempt)
}

// publishEvent публикует событие попытки покупки в Kafka
func (p *kafkaPurchaseProducer) publishEvent(ctx context.Context, topic string, attempt domain.PurchaseAttempt) error {
	event := PurchaseEvent{
		AttemptID:         attempt.ID.String(),
		SessionID:         attempt.SessionID,
		PayerID:           attempt.PayerID,
		PlanID:            attempt.PlanID,
		Amount:            attempt.Amount,
		Currency:          attempt.Currency,
		Status:            attempt.Status,
		TransactionID:     attempt.TransactionID,
		ErrorCode:         attempt.ErrorCode,
		ActivationPending: attempt.ActivationPending,
		Timestamp:         time.Now(),
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(attempt.PayerID),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish purchase event: %w", err)
	}

	p.log.Info("Published purchase event to topic %s: partition=%d offset=%d",
		topic, partition, offset)

	return nil
}

// Close закрывает продюсер
func (p *kafkaPurchaseProducer) Close() error {
	return p.producer.Close()
}
