package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/google/uuid"
)

// IntentCreator интерфейс клиента сервиса платежных намерений
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount float64, currency, description, payerID string) (domain.PaymentIntentHandle, error)
}

// GatewayAdapter интерфейс границы платежного шлюза.
// По одному намерению возвращается ровно один терминальный исход.
type GatewayAdapter interface {
	Confirm(ctx context.Context, handle domain.PaymentIntentHandle) (domain.PaymentOutcome, error)
}

// ActivationPoller интерфейс опросчика активации подписки
type ActivationPoller interface {
	AwaitActivation(ctx context.Context, payerID string) (bool, error)
}

// AttemptRecorder интерфейс записи аудита попыток покупки
type AttemptRecorder interface {
	Create(ctx context.Context, attempt *domain.PurchaseAttempt) error
	Update(ctx context.Context, attempt *domain.PurchaseAttempt) error
}

// EventPublisher интерфейс публикации событий покупки
type EventPublisher interface {
	PublishPurchaseSucceeded(ctx context.Context, attempt domain.PurchaseAttempt) error
	PublishPurchaseFailed(ctx context.Context, attempt domain.PurchaseAttempt) error
}

// Metrics интерфейс метрик потока покупки
type Metrics interface {
	IncFlowTransition(state string)
	IncIntentCreated(currency string)
	IncIntentFailed(reason string)
	IncPurchase(currency string, status string)
}

// Dependencies зависимости оркестратора
type Dependencies struct {
	Intents  IntentCreator
	Gateway  GatewayAdapter
	Poller   ActivationPoller
	Attempts AttemptRecorder
	Events   EventPublisher
	Metrics  Metrics
}

// Orchestrator владеет состоянием потока покупки и единственный имеет право
// его изменять. На одну сессию существует не более одного живого потока;
// перекрывающиеся попытки покупки не допускаются.
type Orchestrator struct {
	mu         sync.Mutex
	state      domain.FlowState
	submitting bool

	confirmation *domain.SubscriptionConfirmation
	handle       *domain.PaymentIntentHandle
	outcome      *domain.PaymentOutcome
	attempt      *domain.PurchaseAttempt
	lastErr      error
	lastResult   *domain.PurchaseResult

	sessionID string
	deps      Dependencies
	log       *logger.Logger
}

// NewOrchestrator создает новый оркестратор потока покупки
func NewOrchestrator(sessionID string, deps Dependencies, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		state:     domain.FlowStatePricing,
		sessionID: sessionID,
		deps:      deps,
		log:       log,
	}
}

// CurrentState возвращает текущее состояние потока
func (o *Orchestrator) CurrentState() domain.FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError возвращает последнюю ошибку потока
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// LastResult возвращает результат последней успешной покупки
func (o *Orchestrator) LastResult() *domain.PurchaseResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// PayerID возвращает плательщика текущего подтверждения
func (o *Orchestrator) PayerID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.confirmation == nil {
		return ""
	}
	return o.confirmation.PayerID
}

// Confirm принимает заполненное подтверждение покупки и переводит поток
// в состояние Confirming. Новое подтверждение всегда порождает новое
// платежное намерение: сохраненное намерение сбрасывается.
func (o *Orchestrator) Confirm(confirmation domain.SubscriptionConfirmation) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.FlowStatePricing && o.state != domain.FlowStateConfirming {
		o.log.Warn("Confirm ignored for session %s: flow is in state %s", o.sessionID, o.state)
		return domain.ErrInvalidOperation
	}
	// Пока попытка в полете, состояние остается Confirming - подмена
	// подтверждения привязала бы создаваемое намерение к чужим данным
	if o.submitting {
		o.log.Warn("Confirm rejected for session %s: purchase attempt in progress", o.sessionID)
		return domain.ErrFlowBusy
	}

	if err := confirmation.Validate(); err != nil {
		o.log.Warn("Invalid confirmation for session %s: %v", o.sessionID, err)
		o.lastErr = err
		return err
	}

	o.confirmation = &confirmation
	o.handle = nil
	o.outcome = nil
	o.lastErr = nil
	o.transitionLocked(domain.FlowStateConfirming)
	return nil
}

// InitiatePayment создает платежное намерение и доводит попытку до
// терминального исхода: подтверждение шлюзом и, при успехе, сверку активации.
// Действует только в состоянии Confirming; в любом другом состоянии вызов
// игнорируется - оркестратор сам является источником истины о том, была ли
// попытка уже отправлена.
func (o *Orchestrator) InitiatePayment(ctx context.Context) (*domain.PurchaseResult, error) {
	o.mu.Lock()
	if o.state != domain.FlowStateConfirming || o.submitting {
		result := o.lastResult
		state := o.state
		o.mu.Unlock()
		o.log.Warn("InitiatePayment ignored for session %s: flow is in state %s", o.sessionID, state)
		return result, nil
	}
	conf := *o.confirmation
	o.submitting = true
	o.mu.Unlock()

	defer o.clearSubmitting()

	handle, err := o.deps.Intents.CreateIntent(ctx, conf.Price, conf.Currency, conf.Description(), conf.PayerID)
	if err != nil {
		// Поток остается в Confirming: пользователь может исправить ввод
		// или повторить подтверждение, получив новое намерение
		o.mu.Lock()
		o.lastErr = err
		o.mu.Unlock()
		o.deps.Metrics.IncIntentFailed(intentFailureReason(err))
		o.log.Error("Failed to create payment intent for session %s: %v", o.sessionID, err)
		return nil, err
	}
	o.deps.Metrics.IncIntentCreated(conf.Currency)

	attempt := &domain.PurchaseAttempt{
		ID:        uuid.New(),
		SessionID: o.sessionID,
		PayerID:   conf.PayerID,
		PlanID:    conf.PlanID,
		Amount:    conf.Price,
		Currency:  conf.Currency,
		IntentID:  handle.IntentID,
		Status:    domain.AttemptStatusInitiated,
	}
	if o.deps.Attempts != nil {
		// Аудит не должен ломать оплату
		if err := o.deps.Attempts.Create(ctx, attempt); err != nil {
			o.log.Error("Failed to record purchase attempt %s: %v", attempt.ID, err)
		}
	}

	o.mu.Lock()
	o.handle = &handle
	o.attempt = attempt
	o.transitionLocked(domain.FlowStateAwaitingGateway)
	o.mu.Unlock()

	return o.runAttempt(ctx, conf, handle)
}

// Retry повторяет неудачную попытку, переиспользуя сохраненное намерение.
// Новое намерение не создается: шлюз сам гарантирует не более одного
// успешного подтверждения на намерение.
func (o *Orchestrator) Retry(ctx context.Context) (*domain.PurchaseResult, error) {
	o.mu.Lock()
	if o.state != domain.FlowStateFailed || o.handle == nil || o.confirmation == nil {
		state := o.state
		o.mu.Unlock()
		o.log.Warn("Retry ignored for session %s: flow is in state %s", o.sessionID, state)
		return nil, domain.ErrInvalidOperation
	}
	if o.submitting {
		o.mu.Unlock()
		return nil, domain.ErrFlowBusy
	}
	conf := *o.confirmation
	handle := *o.handle
	o.submitting = true
	o.lastErr = nil
	o.transitionLocked(domain.FlowStateAwaitingGateway)
	o.mu.Unlock()

	defer o.clearSubmitting()

	return o.runAttempt(ctx, conf, handle)
}

// Reset возвращает поток к выбору плана, сбрасывая подтверждение, намерение
// и результат. Единственная операция, теряющая выбор пользователя, и всегда
// инициируется им явно. Возвращает новое состояние, чтобы презентационный
// слой мог обновиться без широковещательных событий.
func (o *Orchestrator) Reset() domain.FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.submitting {
		o.log.Warn("Reset ignored for session %s: purchase attempt in progress", o.sessionID)
		return o.state
	}

	o.confirmation = nil
	o.handle = nil
	o.outcome = nil
	o.attempt = nil
	o.lastErr = nil
	o.lastResult = nil
	o.transitionLocked(domain.FlowStatePricing)
	return o.state
}

// GoToStep переводит поток между шагами выбора плана и подтверждения.
// Навигация всегда сбрасывает сохраненное намерение: намерение нельзя
// переиспользовать для семантически другого подтверждения, даже если
// пользователь вернулся на тот же шаг.
func (o *Orchestrator) GoToStep(step domain.FlowState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if step != domain.FlowStatePricing && step != domain.FlowStateConfirming {
		return domain.ErrInvalidOperation
	}
	if o.state != domain.FlowStatePricing && o.state != domain.FlowStateConfirming {
		o.log.Warn("GoToStep ignored for session %s: flow is in state %s", o.sessionID, o.state)
		return domain.ErrInvalidOperation
	}
	if o.submitting {
		o.log.Warn("GoToStep rejected for session %s: purchase attempt in progress", o.sessionID)
		return domain.ErrFlowBusy
	}
	if step == domain.FlowStateConfirming && o.confirmation == nil {
		return domain.ErrInvalidOperation
	}

	o.handle = nil
	o.outcome = nil
	if step == domain.FlowStatePricing {
		o.confirmation = nil
	}
	o.transitionLocked(step)
	return nil
}

// runAttempt доводит попытку с готовым намерением до терминального исхода
func (o *Orchestrator) runAttempt(ctx context.Context, conf domain.SubscriptionConfirmation, handle domain.PaymentIntentHandle) (*domain.PurchaseResult, error) {
	outcome, err := o.deps.Gateway.Confirm(ctx, handle)
	if err != nil {
		if ctx.Err() != nil {
			// Поток брошен пользователем: в памяти ничего не должно остаться
			o.discard()
			return nil, err
		}
		o.failAttempt(ctx, conf, err, gatewayErrorCode(err))
		return nil, err
	}

	if !outcome.Success {
		gatewayErr := domain.NewGatewayError(outcome.ErrorCode, outcome.ErrorMessage, handle.IntentID, nil)
		o.mu.Lock()
		o.outcome = &outcome
		o.mu.Unlock()
		o.failAttempt(ctx, conf, gatewayErr, outcome.ErrorCode)
		return nil, gatewayErr
	}

	// Сверка не начинается раньше, чем известен успешный исход: нельзя
	// опрашивать активацию подписки, за которую еще никто не заплатил
	o.mu.Lock()
	o.outcome = &outcome
	o.transitionLocked(domain.FlowStateReconciling)
	o.mu.Unlock()

	activated, err := o.deps.Poller.AwaitActivation(ctx, conf.PayerID)
	if err != nil {
		o.discard()
		return nil, err
	}

	// Таймаут активации не понижает успешную оплату до неудачи: поток
	// завершается успехом с пометкой об отложенной активации
	result := &domain.PurchaseResult{
		TransactionID:     outcome.TransactionID,
		ActivationPending: !activated,
	}

	o.mu.Lock()
	o.lastResult = result
	o.lastErr = nil
	o.transitionLocked(domain.FlowStateSucceeded)
	attempt := o.attempt
	o.mu.Unlock()

	if attempt != nil {
		attempt.Status = domain.AttemptStatusSucceeded
		attempt.TransactionID = outcome.TransactionID
		attempt.ActivationPending = !activated
		o.recordOutcome(ctx, attempt, true)
	}
	o.deps.Metrics.IncPurchase(conf.Currency, string(domain.AttemptStatusSucceeded))

	o.log.Info("Purchase succeeded for session %s, transaction: %s, activation pending: %v",
		o.sessionID, result.TransactionID, result.ActivationPending)
	return result, nil
}

// failAttempt переводит поток в Failed, сохраняя намерение для Retry
func (o *Orchestrator) failAttempt(ctx context.Context, conf domain.SubscriptionConfirmation, cause error, errorCode string) {
	o.mu.Lock()
	o.lastErr = cause
	o.transitionLocked(domain.FlowStateFailed)
	attempt := o.attempt
	o.mu.Unlock()

	if attempt != nil {
		attempt.Status = domain.AttemptStatusFailed
		attempt.ErrorCode = errorCode
		o.recordOutcome(ctx, attempt, false)
	}
	o.deps.Metrics.IncPurchase(conf.Currency, string(domain.AttemptStatusFailed))

	o.log.Warn("Purchase failed for session %s: %v", o.sessionID, cause)
}

// recordOutcome обновляет запись аудита и публикует событие покупки
func (o *Orchestrator) recordOutcome(ctx context.Context, attempt *domain.PurchaseAttempt, succeeded bool) {
	if o.deps.Attempts != nil {
		if err := o.deps.Attempts.Update(ctx, attempt); err != nil {
			o.log.Error("Failed to update purchase attempt %s: %v", attempt.ID, err)
		}
	}

	if o.deps.Events == nil {
		return
	}

	var err error
	if succeeded {
		err = o.deps.Events.PublishPurchaseSucceeded(ctx, *attempt)
	} else {
		err = o.deps.Events.PublishPurchaseFailed(ctx, *attempt)
	}
	if err != nil {
		o.log.Error("Failed to publish purchase event for attempt %s: %v", attempt.ID, err)
	}
}

// discard сбрасывает брошенный поток к начальному состоянию
func (o *Orchestrator) discard() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.confirmation = nil
	o.handle = nil
	o.outcome = nil
	o.attempt = nil
	o.lastErr = nil
	o.lastResult = nil
	o.transitionLocked(domain.FlowStatePricing)
}

// transitionLocked переводит поток в новое состояние. Вызывается под мьютексом.
func (o *Orchestrator) transitionLocked(state domain.FlowState) {
	if o.state == state {
		return
	}
	o.state = state
	o.deps.Metrics.IncFlowTransition(string(state))
	o.log.Debug("Flow %s transitioned to state: %s", o.sessionID, state)
}

// clearSubmitting снимает флаг выполняющейся попытки
func (o *Orchestrator) clearSubmitting() {
	o.mu.Lock()
	o.submitting = false
	o.mu.Unlock()
}

// intentFailureReason возвращает метку причины для метрик
func intentFailureReason(err error) string {
	var validationErrs domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		return "validation"
	}

	var intentErr *domain.IntentCreationError
	if errors.As(err, &intentErr) {
		return intentErr.Code
	}
	return "internal"
}

// gatewayErrorCode возвращает код ошибки шлюза для записи аудита
func gatewayErrorCode(err error) string {
	var gatewayErr *domain.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Code
	}
	return "internal"
}
