package paystackgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/enroll"
)

const (
	Name = "paystack"

	initializePath = "/transaction/initialize"
)

// gateway hands the inline checkout configuration to the client. With a secret key it also
// initializes the transaction server side to get a hosted checkout URL.
type gateway struct {
	publicKey string
	secretKey string
	baseURL   string
	rest      *rest.Client
}

var _ enroll.Gateway = (*gateway)(nil)

func New(conf core.CheckoutConfig) enroll.Gateway {
	return &gateway{
		publicKey: conf.PaystackPublicKey,
		secretKey: conf.PaystackSecretKey,
		baseURL:   conf.PaystackBaseURL,
		rest:      &rest.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}},
	}
}

func (g *gateway) Name() string { return Name }

func (g *gateway) Ready() error {
	if g.publicKey == "" {
		return errors.Wrap(enroll.ErrGatewayUnavailable, "paystack public key not set")
	}
	return nil
}

type (
	initializeRequest struct {
		Email       string            `json:"email"`
		Amount      string            `json:"amount"`
		Currency    string            `json:"currency,omitempty"`
		Reference   string            `json:"reference"`
		CallbackURL string            `json:"callback_url,omitempty"`
		Metadata    map[string]string `json:"metadata,omitempty"`
	}

	initializeResponse struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
)

func (g *gateway) Open(ctx context.Context, c enroll.Checkout) (enroll.CheckoutSession, error) {
	if err := g.Ready(); err != nil {
		return enroll.CheckoutSession{}, err
	}
	cs := enroll.CheckoutSession{
		Gateway:     Name,
		Reference:   c.Reference,
		AmountMinor: c.AmountMinor,
		Currency:    c.Currency,
		Email:       c.Email,
		PublicKey:   g.publicKey,
		Metadata:    c.Metadata,
	}
	if g.secretKey == "" {
		return cs, nil
	}

	res, err := g.initialize(ctx, c)
	if err != nil {
		return enroll.CheckoutSession{}, err
	}
	cs.AuthorizationURL = res.Data.AuthorizationURL
	cs.AccessCode = res.Data.AccessCode
	return cs, nil
}

func (g *gateway) initialize(ctx context.Context, c enroll.Checkout) (initializeResponse, error) {
	var out initializeResponse
	body, err := json.Marshal(initializeRequest{
		Email:       c.Email,
		Amount:      fmt.Sprintf("%d", c.AmountMinor),
		Currency:    c.Currency,
		Reference:   c.Reference,
		CallbackURL: c.CallbackURL,
		Metadata:    c.Metadata,
	})
	if err != nil {
		return out, errors.Wrap(err, "marshalling initialize request")
	}

	res, err := g.rest.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: g.baseURL + initializePath,
		Headers: map[string]string{
			"Authorization": "Bearer " + g.secretKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return out, errors.Wrap(err, "initializing paystack transaction")
	}
	if err = json.Unmarshal([]byte(res.Body), &out); err != nil {
		return out, errors.Wrapf(err, "decoding paystack response (status %d)", res.StatusCode)
	}
	if res.StatusCode >= http.StatusBadRequest || !out.Status {
		return out, errors.Errorf("paystack: %d %s", res.StatusCode, out.Message)
	}
	return out, nil
}
