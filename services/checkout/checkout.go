// Package checkout picks the external checkout gateway.
package checkout

import (
	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/services/checkout/midtrans"
	"github.com/trezcool/tutorhub/services/checkout/paystack"
)

// NewGateway returns the gateway named by conf.Checkout.Provider; paystack by default.
func NewGateway(conf *core.Config) enroll.Gateway {
	switch conf.Checkout.Provider {
	case midtransgw.Name:
		return midtransgw.New(conf.Checkout)
	default:
		return paystackgw.New(conf.Checkout)
	}
}
