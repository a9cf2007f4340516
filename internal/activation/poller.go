package activation

import (
	"context"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
)

// StatusReader интерфейс чтения статуса подписки
type StatusReader interface {
	GetStatus(ctx context.Context, payerID string) (domain.EntitlementStatus, error)
}

// Metrics интерфейс метрик цикла сверки
type Metrics interface {
	ObservePollAttempts(attempts int, activated bool)
}

// Policy параметры цикла сверки
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy возвращает политику опроса по умолчанию: 10 попыток каждые
// 2 секунды. Потолок ожидания около 20 секунд - достаточно, чтобы поглотить
// реалистичное отставание конвейера событий, и достаточно мало, чтобы не
// держать пользователя на спиннере бесконечно.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 10,
		Interval:    2 * time.Second,
	}
}

// Poller сверяет "шлюз подтвердил оплату" с "подписка действительно активна".
// Активация происходит через асинхронный конвейер событий с неизвестной
// задержкой, поэтому единственный способ сходимости - опрос до результата.
type Poller struct {
	statuses StatusReader
	policy   Policy
	metrics  Metrics
	log      *logger.Logger
}

// NewPoller создает новый опросчик активации
func NewPoller(statuses StatusReader, policy Policy, metrics Metrics, log *logger.Logger) *Poller {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}

	return &Poller{
		statuses: statuses,
		policy:   policy,
		metrics:  metrics,
		log:      log,
	}
}

// AwaitActivation опрашивает статус подписки до первого ответа с премиумом.
// Возвращает false после исчерпания бюджета попыток. Временная ошибка запроса
// не прерывает цикл: она трактуется как "еще не активировано". Интервал
// фиксированный, без backoff - лишний опрос легкой читающей ручки дешевле
// неограниченного ожидания. Отмена контекста завершает цикл без новых
// запросов и без результата.
func (p *Poller) AwaitActivation(ctx context.Context, payerID string) (bool, error) {
	p.log.Debug("Awaiting entitlement activation for payer: %s (max %d attempts)",
		payerID, p.policy.MaxAttempts)

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		status, err := p.statuses.GetStatus(ctx, payerID)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			// Временная ошибка: считаем "еще не активировано" и продолжаем
			p.log.Warn("Transient entitlement query failure on attempt %d/%d: %v",
				attempt, p.policy.MaxAttempts, err)
		} else if status.IsPremium {
			p.log.Info("Entitlement activated for payer %s after %d attempt(s)", payerID, attempt)
			if p.metrics != nil {
				p.metrics.ObservePollAttempts(attempt, true)
			}
			return true, nil
		}

		if attempt == p.policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.policy.Interval):
		}
	}

	p.log.Warn("Entitlement not activated for payer %s after %d attempts",
		payerID, p.policy.MaxAttempts)
	if p.metrics != nil {
		p.metrics.ObservePollAttempts(p.policy.MaxAttempts, false)
	}
	return false, nil
}
