package metrics

import (
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PurchaseMetrics интерфейс для метрик потока покупки
type PurchaseMetrics interface {
	IncFlowTransition(state string)
	IncIntentCreated(currency string)
	IncIntentFailed(reason string)
	IncPurchase(currency string, status string)
	ObservePollAttempts(attempts int, activated bool)
}

type purchaseMetrics struct {
	log             *logger.Logger
	flowTransitions *prometheus.CounterVec
	intentsCreated  *prometheus.CounterVec
	intentsFailed   *prometheus.CounterVec
	purchasesStatus *prometheus.CounterVec
	pollAttempts    *prometheus.HistogramVec
}

// NewPurchaseMetrics создает новые метрики потока покупки
func NewPurchaseMetrics(registry *prometheus.Registry, log *logger.Logger) PurchaseMetrics {
	flowTransitions := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_flow_transitions_total",
			Help: "The total number of purchase flow state transitions",
		},
		[]string{"state"},
	)

	intentsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "The total number of created payment intents",
		},
		[]string{"currency"},
	)

	intentsFailed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_failed_total",
			Help: "The total number of failed payment intent creations",
		},
		[]string{"reason"},
	)

	purchasesStatus := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "The total number of finished purchase attempts by status",
		},
		[]string{"currency", "status"},
	)

	pollAttempts := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activation_poll_attempts",
			Help:    "Distribution of activation poll attempts until resolution",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"activated"},
	)

	return &purchaseMetrics{
		log:             log,
		flowTransitions: flowTransitions,
		intentsCreated:  intentsCreated,
		intentsFailed:   intentsFailed,
		purchasesStatus: purchasesStatus,
		pollAttempts:    pollAttempts,
	}
}

// IncFlowTransition увеличивает счетчик переходов состояний потока
func (m *purchaseMetrics) IncFlowTransition(state string) {
	m.flowTransitions.WithLabelValues(state).Inc()
}

// IncIntentCreated увеличивает счетчик созданных платежных намерений
func (m *purchaseMetrics) IncIntentCreated(currency string) {
	m.intentsCreated.WithLabelValues(currency).Inc()
}

// IncIntentFailed увеличивает счетчик неудачных созданий намерений
func (m *purchaseMetrics) IncIntentFailed(reason string) {
	m.intentsFailed.WithLabelValues(reason).Inc()
}

// IncPurchase увеличивает счетчик завершенных покупок
func (m *purchaseMetrics) IncPurchase(currency string, status string) {
	m.purchasesStatus.WithLabelValues(currency, status).Inc()
}

// ObservePollAttempts записывает количество попыток опроса активации
func (m *purchaseMetrics) ObservePollAttempts(attempts int, activated bool) {
	label := "false"
	if activated {
		label = "true"
	}
	m.pollAttempts.WithLabelValues(label).Observe(float64(attempts))
}
