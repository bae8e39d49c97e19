package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/webhook"
)

const (
	SignatureHeader = "Stripe-Signature"
	MaxBodyBytes    = int64(65536)

	EventCheckoutCompleted = "checkout.session.completed"
)

var (
	ErrVerificationNotConfigured = errors.New("webhook verification is not configured")
	ErrSignature                 = errors.New("webhook signature verification failed")
	ErrMalformed                 = errors.New("malformed webhook payload")
)

// Completion is a finished checkout, as reported by the provider.
type Completion struct {
	SessionID string
	EventID   string
	UserID    string
}

// WebhookVerifier authenticates webhook deliveries. With no secret it only
// accepts payloads in explicit insecure mode, meant for local development.
type WebhookVerifier struct {
	secret   string
	insecure bool
}

func NewWebhookVerifier(secret string, insecure bool) *WebhookVerifier {
	if secret == "" && insecure {
		log.Println("payments: INSECURE MODE: webhook signatures are NOT verified (WEBHOOK_INSECURE=true)")
	}
	return &WebhookVerifier{secret: secret, insecure: insecure}
}

func (v *WebhookVerifier) Insecure() bool { return v.secret == "" && v.insecure }

// Parse returns the provider event carried by payload.
func (v *WebhookVerifier) Parse(payload []byte, sigHeader string) (stripe.Event, error) {
	if v.secret != "" {
		ev, err := webhook.ConstructEvent(payload, sigHeader, v.secret)
		if err != nil {
			return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return ev, nil
	}
	if !v.insecure {
		return stripe.Event{}, ErrVerificationNotConfigured
	}

	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// CompletionFrom extracts the completed checkout from ev. ok is false for
// event types this service does not act on.
func CompletionFrom(ev stripe.Event) (c Completion, ok bool, err error) {
	if ev.Type != EventCheckoutCompleted {
		return Completion{}, false, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return Completion{}, true, fmt.Errorf("%w: missing data.object", ErrMalformed)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return Completion{}, true, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c = Completion{
		SessionID: s.ID,
		EventID:   s.Metadata[MetaEventID],
		UserID:    s.Metadata[MetaUserID],
	}
	if c.UserID == "" {
		c.UserID = s.ClientReferenceID
	}
	if c.SessionID == "" || c.EventID == "" || c.UserID == "" {
		return Completion{}, true, fmt.Errorf("%w: session, event_id and user_id are required", ErrMalformed)
	}
	return c, true, nil
}
