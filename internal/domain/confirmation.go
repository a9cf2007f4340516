package domain

import (
	"github.com/go-playground/validator/v10"
)

// BillingCycle период оплаты подписки
type BillingCycle string

const (
	BillingCycleMonth BillingCycle = "month"
	BillingCycleYear  BillingCycle = "year"
)

// SubscriptionConfirmation представляет подтвержденное пользователем намерение
// купить план. Неизменяемо после создания: новое подтверждение всегда
// порождает новое платежное намерение.
type SubscriptionConfirmation struct {
	PlanID       string       `json:"plan_id" validate:"required"`
	PlanName     string       `json:"plan_name"`
	Price        float64      `json:"price" validate:"required,gt=0"`
	Currency     string       `json:"currency" validate:"required,len=3"`
	BillingCycle BillingCycle `json:"billing_cycle" validate:"required,oneof=month year"`
	PayerID      string       `json:"payer_id" validate:"required,uuid4"`
	PayerEmail   string       `json:"payer_email" validate:"omitempty,email"`
	Consent      bool         `json:"consent" validate:"eq=true"`
}

var validate = validator.New()

// Validate проверяет корректность подтверждения
func (c SubscriptionConfirmation) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var errs ValidationErrors
	for _, fieldErr := range invalid {
		errs.Add(fieldErr.Field(), "failed on rule: "+fieldErr.Tag())
	}
	return errs
}

// Description возвращает человекочитаемое описание покупки для шлюза
func (c SubscriptionConfirmation) Description() string {
	name := c.PlanName
	if name == "" {
		name = c.PlanID
	}
	return "Subscription: " + name + " (" + string(c.BillingCycle) + "ly)"
}
