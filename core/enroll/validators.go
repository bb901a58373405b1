package enroll

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/pricing"
)

var (
	deliveryMethodTag  = "delivery_method"
	deliveryMethodText = "delivery method must be online or onsite"

	paymentPlanTag  = "payment_plan"
	paymentPlanText = "payment plan must be installment or full"

	callbackStatusTag  = "callback_status"
	callbackStatusText = "status must be success or cancelled"
)

// InitValidators registers the enrollment validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	// an empty value clears the field; the setters lower the case
	_ = validate.RegisterValidation(deliveryMethodTag, func(fl validator.FieldLevel) bool {
		v := core.CleanString(fl.Field().String(), true /* lower */)
		return v == "" || pricing.ValidDeliveryMethod(v)
	})
	core.RegisterCustomTranslation(validate, translator, deliveryMethodTag, deliveryMethodText)

	_ = validate.RegisterValidation(paymentPlanTag, func(fl validator.FieldLevel) bool {
		v := core.CleanString(fl.Field().String(), true /* lower */)
		return v == "" || pricing.ValidPaymentPlan(v)
	})
	core.RegisterCustomTranslation(validate, translator, paymentPlanTag, paymentPlanText)

	_ = validate.RegisterValidation(callbackStatusTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == StatusSuccess || s == StatusCancelled
	})
	core.RegisterCustomTranslation(validate, translator, callbackStatusTag, callbackStatusText)
}
