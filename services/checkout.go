package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"eventapi/models"
	"eventapi/payments"
)

// MaxPriceMinor is the largest single charge the provider accepts, in cents.
const MaxPriceMinor = 99_999_999

type CheckoutConfig struct {
	Currency    string
	FrontendURL string
}

type CheckoutInput struct {
	EventID    string
	UserID     string
	EventTitle string
	Price      any // JSON number or numeric string
}

type Checkout struct {
	events   models.EventRepository
	provider payments.Provider
	cfg      CheckoutConfig
}

func NewCheckout(events models.EventRepository, provider payments.Provider, cfg CheckoutConfig) *Checkout {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Checkout{events: events, provider: provider, cfg: cfg}
}

// Create opens a hosted checkout for one seat. No local state is written;
// the registration is applied later by the redirect or the webhook.
func (s *Checkout) Create(ctx context.Context, in CheckoutInput) (*payments.CheckoutSession, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.UserID = strings.TrimSpace(in.UserID)
	if in.EventID == "" {
		return nil, invalid("event_id is required")
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, invalid("user_id is required")
	}

	ev, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, lookupError(err)
	}
	if ev.HasAttendee(in.UserID) {
		return nil, conflict("User already registered")
	}

	title := in.EventTitle
	if title == "" {
		title = ev.Title
	}
	sess, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		EventID:     in.EventID,
		UserID:      in.UserID,
		Title:       title,
		AmountMinor: int64(math.Round(price * 100)),
		Currency:    s.cfg.Currency,
		SuccessURL:  s.successURL(in.EventID),
		CancelURL:   s.cancelURL(in.EventID),
	})
	if err != nil {
		return nil, upstream("Could not create checkout session", err)
	}
	return sess, nil
}

func (s *Checkout) successURL(eventID string) string {
	// {CHECKOUT_SESSION_ID} is substituted by the provider and must stay unescaped.
	return strings.TrimRight(s.cfg.FrontendURL, "/") +
		"/registered-events?payment_status=success&session_id={CHECKOUT_SESSION_ID}&event_id=" +
		url.QueryEscape(eventID)
}

func (s *Checkout) cancelURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s?payment_status=cancelled",
		strings.TrimRight(s.cfg.FrontendURL, "/"), url.PathEscape(eventID))
}

// ParsePrice accepts a JSON number or a numeric string and requires a finite
// positive amount no larger than MaxPriceMinor cents.
func ParsePrice(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch p := v.(type) {
	case float64:
		f = p
	case float32:
		f = float64(p)
	case int:
		f = float64(p)
	case int64:
		f = float64(p)
	case json.Number:
		f, err = p.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(p), 64)
	default:
		return 0, invalid("price must be a number")
	}
	if err != nil {
		return 0, invalid("price must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, invalid("price must be greater than 0")
	}
	// below one minor unit rounds to a zero charge
	if math.Round(f*100) < 1 {
		return 0, invalid("price must be greater than 0")
	}
	if math.Round(f*100) > MaxPriceMinor {
		return 0, invalid("price exceeds the maximum charge")
	}
	return f, nil
}
