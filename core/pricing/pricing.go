// Package pricing derives every amount the enrollment flow charges. Amounts are in major
// currency units unless stated otherwise.
package pricing

import (
	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/catalog"
)

// Delivery methods
const (
	Online = "online"
	Onsite = "onsite"
)

// Payment plans
const (
	PlanInstallment = "installment"
	PlanFull        = "full"
)

const (
	// InstallmentThreshold is both the full amount below which an installment is half the price,
	// the minimum installment above it, and the installment quoted before a tutor is picked.
	InstallmentThreshold int64 = 80000

	// MinorUnitFactor converts major units to the gateway's minor units (kobo, cents).
	MinorUnitFactor int64 = 100
)

var (
	DeliveryMethods = []string{Online, Onsite}
	PaymentPlans    = []string{PlanInstallment, PlanFull}
)

func ValidDeliveryMethod(method string) bool { return method == Online || method == Onsite }
func ValidPaymentPlan(plan string) bool      { return plan == PlanInstallment || plan == PlanFull }

// AdjustedPrice halves (rounding down) the price of online deliveries.
func AdjustedPrice(price int64, deliveryMethod string) int64 {
	if price < 0 {
		price = 0
	}
	if core.SameText(deliveryMethod, Online) {
		return price / 2
	}
	return price
}

// FullPaymentAmount is the adjusted price of the offering; 0 without an offering.
func FullPaymentAmount(offering *catalog.Offering, deliveryMethod string) int64 {
	if offering == nil {
		return 0
	}
	return AdjustedPrice(int64(offering.Price), deliveryMethod)
}

// InstallmentAmount derives the first installment from the full amount.
func InstallmentAmount(full int64, hasOffering bool) int64 {
	if !hasOffering {
		return InstallmentThreshold
	}
	if full < InstallmentThreshold {
		return full / 2
	}
	if part := full * 3 / 10; part > InstallmentThreshold {
		return part
	}
	return InstallmentThreshold
}

// AmountForPlan is what the student pays now for the chosen plan; 0 for an unknown plan.
func AmountForPlan(offering *catalog.Offering, deliveryMethod, plan string) int64 {
	full := FullPaymentAmount(offering, deliveryMethod)
	switch plan {
	case PlanFull:
		return full
	case PlanInstallment:
		return InstallmentAmount(full, offering != nil)
	default:
		return 0
	}
}

func ToMinorUnits(amount int64) int64 {
	return amount * MinorUnitFactor
}
