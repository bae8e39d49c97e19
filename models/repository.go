package models

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ===== Events =====

type Comment struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	UserName  string    `bson:"user_name" json:"user_name"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type Event struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	Date          string             `bson:"date" json:"date"` // ISO-8601, as sent by the client
	Location      string             `bson:"location" json:"location"`
	OrganizerID   string             `bson:"organizer_id" json:"organizer_id"`
	Price         float64            `bson:"price,omitempty" json:"price,omitempty"`
	ImageURL      string             `bson:"image_url" json:"image_url"`
	BannerImage   string             `bson:"banner_image" json:"banner_image"`
	GalleryImages []string           `bson:"gallery_images" json:"gallery_images"`

	// Mutated only through ApplyRegistration.
	Attendees       []string `bson:"attendees" json:"attendees"`
	AttendeeCount   int      `bson:"attendee_count" json:"attendee_count"`
	PaymentSessions []string `bson:"payment_sessions" json:"-"`

	Comments  []Comment `bson:"comments" json:"comments"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Normalize replaces nil collections with empty ones and derives the
// attendee count from the attendee set, so clients never see the two drift.
func (e *Event) Normalize() {
	if e.GalleryImages == nil {
		e.GalleryImages = []string{}
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	if e.PaymentSessions == nil {
		e.PaymentSessions = []string{}
	}
	if e.Comments == nil {
		e.Comments = []Comment{}
	}
	e.AttendeeCount = len(e.Attendees)
}

func (e Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

func (e Event) HasPaymentSession(sessionID string) bool {
	return sessionID != "" && slices.Contains(e.PaymentSessions, sessionID)
}

var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// StartsAt parses Date. Dates without a zone are read as UTC.
func (e Event) StartsAt() (time.Time, bool) {
	s := strings.TrimSpace(e.Date)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ImagePatch carries the media fields of PUT /update-images; nil fields are left untouched.
type ImagePatch struct {
	ImageURL      *string   `json:"image_url"`
	BannerImage   *string   `json:"banner_image"`
	GalleryImages *[]string `json:"gallery_images"`
}

func (p ImagePatch) Empty() bool {
	return p.ImageURL == nil && p.BannerImage == nil && p.GalleryImages == nil
}

type EventRepository interface {
	GetAll(ctx context.Context) ([]Event, error)
	GetByOrganizer(ctx context.Context, organizerID string) ([]Event, error)
	GetAttendedBy(ctx context.Context, userID string) ([]Event, error)
	GetByID(ctx context.Context, id string) (Event, error)
	Create(ctx context.Context, e *Event) error
	UpdateImages(ctx context.Context, id string, patch ImagePatch) error

	// ApplyRegistration adds userID (and sessionID, when set) to the event and
	// bumps the attendee counter in one conditional write. It reports false
	// when the event exists but the user or session is already recorded.
	ApplyRegistration(ctx context.Context, id, userID, sessionID string) (bool, error)

	AddComment(ctx context.Context, id string, c Comment) error
	DeleteComment(ctx context.Context, id, commentID string) error
}

// ===== Users (mirror of the external identity provider) =====

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ClerkID         string             `bson:"clerk_id" json:"clerk_id"`
	Email           string             `bson:"email" json:"email"`
	Username        string             `bson:"username,omitempty" json:"username,omitempty"`
	FirstName       string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName        string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	ProfileImageURL string             `bson:"profile_image_url,omitempty" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	LastLogin       time.Time          `bson:"last_login" json:"last_login"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error // ErrDuplicate when clerk_id exists
	GetByClerkID(ctx context.Context, clerkID string) (User, error)
	TouchLastLogin(ctx context.Context, clerkID string, at time.Time) error
}

// ===== Feedback =====

type Feedback struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	EventID   string             `bson:"event_id" json:"event_id"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error // ErrDuplicate for a second (user, event) pair
	Get(ctx context.Context, userID, eventID string) (Feedback, error)
	ListByEvent(ctx context.Context, eventID string) ([]Feedback, error)
}
