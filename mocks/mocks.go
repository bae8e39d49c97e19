// Package mocks holds in-memory repositories for handler and service tests.
// They follow the same contracts as the Mongo repositories, including the
// conditional registration write, guarded by a mutex instead of the store.
package mocks

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"eventapi/models"
)

type MockEventRepo struct {
	mu    sync.Mutex
	Items map[string]models.Event // key is the hex id
	Err   error                   // returned by every call when set
}

func NewEventRepo() *MockEventRepo {
	return &MockEventRepo{Items: map[string]models.Event{}}
}

// Seed stores e under a fresh id and returns that id.
func (m *MockEventRepo) Seed(e models.Event) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	e.Normalize()
	m.Items[e.ID.Hex()] = e
	return e.ID.Hex()
}

func cloneEvent(e models.Event) models.Event {
	e.Attendees = slices.Clone(e.Attendees)
	e.PaymentSessions = slices.Clone(e.PaymentSessions)
	e.GalleryImages = slices.Clone(e.GalleryImages)
	e.Comments = slices.Clone(e.Comments)
	e.Normalize()
	return e
}

func (m *MockEventRepo) list(keep func(models.Event) bool) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Event, 0, len(m.Items))
	for _, e := range m.Items {
		if keep(e) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MockEventRepo) GetAll(ctx context.Context) ([]models.Event, error) {
	return m.list(func(models.Event) bool { return true })
}

func (m *MockEventRepo) GetByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	return m.list(func(e models.Event) bool { return e.OrganizerID == organizerID })
}

func (m *MockEventRepo) GetAttendedBy(ctx context.Context, userID string) ([]models.Event, error) {
	return m.list(func(e models.Event) bool { return e.HasAttendee(userID) })
}

// lookup must be called with mu held.
func (m *MockEventRepo) lookup(id string) (models.Event, error) {
	if m.Err != nil {
		return models.Event{}, m.Err
	}
	oid, err := models.ParseID(id)
	if err != nil {
		return models.Event{}, err
	}
	e, ok := m.Items[oid.Hex()]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *MockEventRepo) GetByID(ctx context.Context, id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return models.Event{}, err
	}
	return cloneEvent(e), nil
}

func (m *MockEventRepo) Create(ctx context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	e.ID = primitive.NewObjectID()
	e.Normalize()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.Items[e.ID.Hex()] = cloneEvent(*e)
	return nil
}

func (m *MockEventRepo) UpdateImages(ctx context.Context, id string, p models.ImagePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.BannerImage != nil {
		e.BannerImage = *p.BannerImage
	}
	if p.GalleryImages != nil {
		e.GalleryImages = slices.Clone(*p.GalleryImages)
	}
	m.Items[e.ID.Hex()] = e
	return nil
}

func (m *MockEventRepo) ApplyRegistration(ctx context.Context, id, userID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return false, err
	}
	if e.HasAttendee(userID) || e.HasPaymentSession(sessionID) {
		return false, nil
	}
	e.Attendees = append(slices.Clone(e.Attendees), userID)
	if sessionID != "" {
		e.PaymentSessions = append(slices.Clone(e.PaymentSessions), sessionID)
	}
	e.AttendeeCount++
	m.Items[e.ID.Hex()] = e
	return true, nil
}

func (m *MockEventRepo) AddComment(ctx context.Context, id string, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.Comments = append(slices.Clone(e.Comments), c)
	m.Items[e.ID.Hex()] = e
	return nil
}

func (m *MockEventRepo) DeleteComment(ctx context.Context, id, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(e.Comments, func(c models.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return models.ErrNotFound
	}
	e.Comments = slices.Delete(slices.Clone(e.Comments), i, i+1)
	m.Items[e.ID.Hex()] = e
	return nil
}

// Snapshot returns a copy of the stored event without normalizing the counter,
// so tests can assert on the raw stored value.
func (m *MockEventRepo) Snapshot(id string) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if oid, err := models.ParseID(id); err == nil {
		id = oid.Hex()
	}
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, false
	}
	e.Attendees = slices.Clone(e.Attendees)
	e.PaymentSessions = slices.Clone(e.PaymentSessions)
	return e, true
}

type MockUserRepo struct {
	mu    sync.Mutex
	Users map[string]models.User // key is clerk_id
}

func NewUserRepo() *MockUserRepo {
	return &MockUserRepo{Users: map[string]models.User{}}
}

func (m *MockUserRepo) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[u.ClerkID]; ok {
		return models.ErrDuplicate
	}
	u.ID = primitive.NewObjectID()
	m.Users[u.ClerkID] = *u
	return nil
}

func (m *MockUserRepo) GetByClerkID(ctx context.Context, clerkID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[clerkID]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (m *MockUserRepo) TouchLastLogin(ctx context.Context, clerkID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[clerkID]
	if !ok {
		return models.ErrNotFound
	}
	u.LastLogin = at
	m.Users[clerkID] = u
	return nil
}

type MockFeedbackRepo struct {
	mu    sync.Mutex
	Items []models.Feedback
}

func NewFeedbackRepo() *MockFeedbackRepo { return &MockFeedbackRepo{} }

func (m *MockFeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.Items {
		if x.UserID == f.UserID && x.EventID == f.EventID {
			return models.ErrDuplicate
		}
	}
	f.ID = primitive.NewObjectID()
	m.Items = append(m.Items, *f)
	return nil
}

func (m *MockFeedbackRepo) Get(ctx context.Context, userID, eventID string) (models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.Items {
		if x.UserID == userID && x.EventID == eventID {
			return x, nil
		}
	}
	return models.Feedback{}, models.ErrNotFound
}

func (m *MockFeedbackRepo) ListByEvent(ctx context.Context, eventID string) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Feedback{}
	for _, x := range m.Items {
		if x.EventID == eventID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (m *MockFeedbackRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Items)
}
