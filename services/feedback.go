package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"eventapi/models"
)

type FeedbackInput struct {
	UserID  string
	Rating  *float64
	Comment string
}

type FeedbackSummary struct {
	Feedbacks     []models.Feedback `json:"feedbacks"`
	Count         int               `json:"count"`
	AverageRating float64           `json:"average_rating"`
}

// PendingEvent is an attended, already past event still lacking feedback.
type PendingEvent struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	ImageURL string `json:"image_url"`
}

type Feedback struct {
	events   models.EventRepository
	feedback models.FeedbackRepository
	now      func() time.Time
}

func NewFeedback(events models.EventRepository, feedback models.FeedbackRepository) *Feedback {
	return &Feedback{events: events, feedback: feedback, now: time.Now}
}

// Submit stores one rating per (user, event); only attendees may rate.
func (s *Feedback) Submit(ctx context.Context, eventID string, in FeedbackInput) (models.Feedback, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" || !validRating(in.Rating) {
		return models.Feedback{}, invalid("Invalid feedback data. Rating must be between 1-5.")
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return models.Feedback{}, lookupError(err)
	}
	if !ev.HasAttendee(in.UserID) {
		return models.Feedback{}, forbidden("User did not attend this event")
	}
	// feedback is keyed on the stored id, whatever case the caller used
	eventID = ev.ID.Hex()

	switch _, err := s.feedback.Get(ctx, in.UserID, eventID); {
	case err == nil:
		return models.Feedback{}, conflict("User already submitted feedback for this event")
	case !errors.Is(err, models.ErrNotFound):
		return models.Feedback{}, upstream("Could not read feedback", err)
	}

	f := models.Feedback{
		UserID:    in.UserID,
		EventID:   eventID,
		Rating:    int(*in.Rating),
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now().UTC(),
	}
	if err := s.feedback.Create(ctx, &f); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return models.Feedback{}, conflict("User already submitted feedback for this event")
		}
		return models.Feedback{}, upstream("Could not save feedback", err)
	}
	return f, nil
}

func validRating(r *float64) bool {
	if r == nil {
		return false
	}
	v := *r
	return v == math.Trunc(v) && v >= 1 && v <= 5
}

func (s *Feedback) ForEvent(ctx context.Context, eventID string) (FeedbackSummary, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return FeedbackSummary{}, lookupError(err)
	}
	list, err := s.feedback.ListByEvent(ctx, ev.ID.Hex())
	if err != nil {
		return FeedbackSummary{}, upstream("Could not read feedback", err)
	}
	sum := FeedbackSummary{Feedbacks: list, Count: len(list)}
	if len(list) > 0 {
		total := 0
		for _, f := range list {
			total += f.Rating
		}
		sum.AverageRating = math.Round(float64(total)/float64(len(list))*10) / 10
	}
	return sum, nil
}

func (s *Feedback) ForUser(ctx context.Context, userID, eventID string) (models.Feedback, error) {
	if oid, err := models.ParseID(eventID); err == nil {
		eventID = oid.Hex()
	}
	f, err := s.feedback.Get(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Feedback{}, notFound("No feedback found")
		}
		return models.Feedback{}, upstream("Could not read feedback", err)
	}
	return f, nil
}

func (s *Feedback) Pending(ctx context.Context, userID string) ([]PendingEvent, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user_id is required")
	}
	attended, err := s.events.GetAttendedBy(ctx, userID)
	if err != nil {
		return nil, upstream("Could not read events", err)
	}

	now := s.now()
	out := []PendingEvent{}
	for _, ev := range attended {
		// events with an unparseable date are never considered past
		at, ok := ev.StartsAt()
		if !ok || !at.Before(now) {
			continue
		}
		_, err := s.feedback.Get(ctx, userID, ev.ID.Hex())
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, upstream("Could not read feedback", err)
		}
		out = append(out, PendingEvent{ID: ev.ID.Hex(), Title: ev.Title, Date: ev.Date, ImageURL: ev.ImageURL})
	}
	return out, nil
}
