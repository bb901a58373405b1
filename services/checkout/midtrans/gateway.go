package midtransgw

import (
	"context"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/core/pricing"
)

const Name = "midtrans"

// gateway opens Snap checkouts. Snap amounts are in major units.
type gateway struct {
	serverKey string
	client    snap.Client
}

var _ enroll.Gateway = (*gateway)(nil)

func New(conf core.CheckoutConfig) enroll.Gateway {
	g := &gateway{serverKey: conf.MidtransServerKey}
	env := midtrans.Sandbox
	if conf.MidtransProd {
		env = midtrans.Production
	}
	g.client.New(conf.MidtransServerKey, env)
	return g
}

func (g *gateway) Name() string { return Name }

func (g *gateway) Ready() error {
	if g.serverKey == "" {
		return errors.Wrap(enroll.ErrGatewayUnavailable, "midtrans server key not set")
	}
	return nil
}

func (g *gateway) Open(_ context.Context, c enroll.Checkout) (enroll.CheckoutSession, error) {
	if err := g.Ready(); err != nil {
		return enroll.CheckoutSession{}, err
	}
	res, mErr := g.client.CreateTransaction(snapRequest(c))
	if mErr != nil {
		return enroll.CheckoutSession{}, errors.Wrap(mErr, "creating snap transaction")
	}
	return enroll.CheckoutSession{
		Gateway:          Name,
		Reference:        c.Reference,
		AmountMinor:      c.AmountMinor,
		Currency:         c.Currency,
		Email:            c.Email,
		AuthorizationURL: res.RedirectURL,
		Token:            res.Token,
		Metadata:         c.Metadata,
	}, nil
}

func snapRequest(c enroll.Checkout) *snap.Request {
	first, last := splitName(c.Name)
	amount := c.AmountMinor / pricing.MinorUnitFactor
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  c.Reference,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: c.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    c.Metadata["tutor_course_id"],
				Price: amount,
				Qty:   1,
				Name:  "Course enrollment (" + c.Metadata["payment_plan"] + ")",
			},
		},
	}
	if c.CallbackURL != "" {
		req.Callbacks = &snap.Callbacks{Finish: c.CallbackURL}
	}
	return req
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
