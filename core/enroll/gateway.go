package enroll

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable is returned when the checkout gateway cannot be used (missing keys).
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Checkout is what a gateway needs to open a checkout.
type Checkout struct {
	Reference   string
	Email       string
	Name        string
	AmountMinor int64 // in the currency's minor unit
	Currency    string
	CallbackURL string
	Metadata    map[string]string
}

// CheckoutSession tells the client how to take the student through the gateway's checkout.
type CheckoutSession struct {
	Gateway          string            `json:"gateway"`
	Reference        string            `json:"reference"`
	AmountMinor      int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Email            string            `json:"email"`
	PublicKey        string            `json:"public_key,omitempty"`
	AuthorizationURL string            `json:"authorization_url,omitempty"`
	AccessCode       string            `json:"access_code,omitempty"`
	Token            string            `json:"token,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Gateway is an external checkout provider.
type Gateway interface {
	Name() string
	// Ready returns ErrGatewayUnavailable when the gateway is not configured.
	Ready() error
	Open(ctx context.Context, c Checkout) (CheckoutSession, error)
}
