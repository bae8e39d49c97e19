// Package payments wraps the hosted-checkout provider: creating checkout
// sessions and turning signed webhook deliveries into completed payments.
package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/checkout/session"
)

// Metadata keys carried through the provider untouched.
const (
	MetaEventID = "event_id"
	MetaUserID  = "user_id"
)

type CheckoutParams struct {
	EventID     string
	UserID      string
	Title       string
	AmountMinor int64 // smallest currency unit
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID string `json:"id"`
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}

// StripeProvider holds its own key and backend instead of the package-level stripe.Key.
type StripeProvider struct {
	sessions session.Client
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{
		sessions: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	params := checkoutSessionParams(in)
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID}, nil
}

func checkoutSessionParams(in CheckoutParams) *stripe.CheckoutSessionParams {
	name := in.Title
	if name == "" {
		name = "Event registration"
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Name:     stripe.String(name),
			Amount:   stripe.Int64(in.AmountMinor),
			Currency: stripe.String(in.Currency),
			Quantity: stripe.Int64(1),
		}},
		ClientReferenceID: stripe.String(in.UserID),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
	}
	params.AddMetadata(MetaEventID, in.EventID)
	params.AddMetadata(MetaUserID, in.UserID)
	params.SetIdempotencyKey(uuid.NewString())
	return params
}
