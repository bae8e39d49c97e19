package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"eventapi/models"
	"eventapi/notify"
)

// Invalidator drops cached event responses after a write.
type Invalidator interface {
	PurgeEventsList(ctx context.Context)
	PurgeEventItem(ctx context.Context, id string)
}

// Registration is the outcome of Register / ConfirmPayment.
type Registration struct {
	EventID       string   `json:"event_id"`
	UserID        string   `json:"user_id"`
	AttendeeCount int      `json:"attendee_count"`
	Attendees     []string `json:"attendees"`
	Applied       bool     `json:"applied"` // false when the call was an idempotent no-op
}

// Reconciler applies each (event, user) registration exactly once, no matter
// how many times the client redirect and the payment webhook signal it.
type Reconciler struct {
	events models.EventRepository
	inv    Invalidator
	pub    notify.Publisher
	now    func() time.Time
}

func NewReconciler(events models.EventRepository, inv Invalidator, pub notify.Publisher) *Reconciler {
	if pub == nil {
		pub = notify.Noop{}
	}
	return &Reconciler{events: events, inv: inv, pub: pub, now: time.Now}
}

// Register is the client-triggered path; sessionID is optional.
func (r *Reconciler) Register(ctx context.Context, eventID, userID, sessionID string) (Registration, error) {
	return r.apply(ctx, eventID, userID, sessionID)
}

// ConfirmPayment is the webhook path. Providers redeliver, so replays of the
// same session must leave the event untouched.
func (r *Reconciler) ConfirmPayment(ctx context.Context, eventID, userID, sessionID string) (Registration, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Registration{}, invalid("session_id is required")
	}
	return r.apply(ctx, eventID, userID, sessionID)
}

func (r *Reconciler) apply(ctx context.Context, eventID, userID, sessionID string) (Registration, error) {
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" {
		return Registration{}, invalid("user_id is required")
	}
	if _, err := models.ParseID(eventID); err != nil {
		return Registration{}, invalid("Invalid event ID")
	}

	ev, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return Registration{}, lookupError(err)
	}
	if ev.HasAttendee(userID) || ev.HasPaymentSession(sessionID) {
		return snapshot(ev, userID, false), nil
	}

	applied, err := r.events.ApplyRegistration(ctx, eventID, userID, sessionID)
	if err != nil {
		return Registration{}, lookupError(err)
	}

	// Re-read either way: on a lost race the winner's write is what we report.
	ev, err = r.events.GetByID(ctx, eventID)
	if err != nil {
		return Registration{}, lookupError(err)
	}
	reg := snapshot(ev, userID, applied)
	if applied {
		r.afterApply(ctx, reg, sessionID)
	}
	return reg, nil
}

func (r *Reconciler) afterApply(ctx context.Context, reg Registration, sessionID string) {
	if r.inv != nil {
		r.inv.PurgeEventsList(ctx)
		r.inv.PurgeEventItem(ctx, reg.EventID)
	}
	msg := notify.AttendeeRegisteredMessage{
		EventID:       reg.EventID,
		UserID:        reg.UserID,
		SessionID:     sessionID,
		AttendeeCount: reg.AttendeeCount,
		RegisteredAt:  r.now().Unix(),
	}
	if err := r.pub.Publish(ctx, msg, notify.TopicAttendeeRegistered); err != nil {
		log.Printf("registration: publish for event %s user %s failed: %v", reg.EventID, reg.UserID, err)
	}
}

func snapshot(ev models.Event, userID string, applied bool) Registration {
	ev.Normalize()
	return Registration{
		EventID:       ev.ID.Hex(),
		UserID:        userID,
		AttendeeCount: ev.AttendeeCount,
		Attendees:     ev.Attendees,
		Applied:       applied,
	}
}

// lookupError maps repository errors on an event lookup to the service taxonomy.
func lookupError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidID):
		return invalid("Invalid event ID")
	case errors.Is(err, models.ErrNotFound):
		return notFound("Event not found")
	default:
		return upstream("Could not reach the event store", err)
	}
}
